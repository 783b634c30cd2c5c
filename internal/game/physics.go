package game

import "math"

// stepMovement advances every listed player by dt against the given collision
// rects. It is a pure function of its inputs: no clocks, no RNG, and a stable
// iteration order, so equal inputs produce bit-identical positions.
func stepMovement(players []*PlayerState, rects []Rect, dt float64) {
	for _, player := range players {
		movePlayerWithWalls(player, rects, dt)
	}
	resolvePlayerCollisions(players, rects)
}

// moveSpeed returns the per-tick speed for the player's movement state.
func moveSpeed(p *PlayerState) float64 {
	speed := p.Movement.speed()
	if p.IsADS {
		speed *= adsMoveScale
	}
	return speed
}

// movePlayerWithWalls integrates intent while clamping each axis
// independently, so players slide along walls instead of sticking.
func movePlayerWithWalls(p *PlayerState, rects []Rect, dt float64) {
	dx := p.intentX
	dy := p.intentY
	length := math.Hypot(dx, dy)
	if length != 0 {
		dx /= length
		dy /= length
	}

	speed := moveSpeed(p)
	deltaX := dx * speed * dt
	deltaY := dy * speed * dt

	x := p.Transform.Position.X
	y := p.Transform.Position.Y

	newX := clamp(x+deltaX, playerHalf, worldWidth-playerHalf)
	if deltaX != 0 {
		newX = resolveAxisMoveX(x, y, newX, deltaX, rects)
	}

	newY := clamp(y+deltaY, playerHalf, worldHeight-playerHalf)
	if deltaY != 0 {
		newY = resolveAxisMoveY(newX, y, newY, deltaY, rects)
	}

	p.Transform.Position.X = newX
	p.Transform.Position.Y = newY

	resolveWallPenetration(p, rects)
}

// resolveAxisMoveX applies horizontal movement while stopping at wall edges.
func resolveAxisMoveX(oldX, oldY, proposedX, deltaX float64, rects []Rect) float64 {
	newX := proposedX
	for _, r := range rects {
		minY := r.Y - playerHalf
		maxY := r.Y + r.Height + playerHalf
		if oldY < minY || oldY > maxY {
			continue
		}

		if deltaX > 0 {
			boundary := r.X - playerHalf
			if oldX <= boundary && newX > boundary {
				newX = boundary
			}
		} else if deltaX < 0 {
			boundary := r.X + r.Width + playerHalf
			if oldX >= boundary && newX < boundary {
				newX = boundary
			}
		}
	}
	return clamp(newX, playerHalf, worldWidth-playerHalf)
}

// resolveAxisMoveY applies vertical movement while stopping at wall edges.
func resolveAxisMoveY(oldX, oldY, proposedY, deltaY float64, rects []Rect) float64 {
	newY := proposedY
	for _, r := range rects {
		minX := r.X - playerHalf
		maxX := r.X + r.Width + playerHalf
		if oldX < minX || oldX > maxX {
			continue
		}

		if deltaY > 0 {
			boundary := r.Y - playerHalf
			if oldY <= boundary && newY > boundary {
				newY = boundary
			}
		} else if deltaY < 0 {
			boundary := r.Y + r.Height + playerHalf
			if oldY >= boundary && newY < boundary {
				newY = boundary
			}
		}
	}
	return clamp(newY, playerHalf, worldHeight-playerHalf)
}

// resolveWallPenetration nudges a player out of any rect they overlap.
func resolveWallPenetration(p *PlayerState, rects []Rect) {
	for _, r := range rects {
		x := p.Transform.Position.X
		y := p.Transform.Position.Y
		if !circleRectOverlap(x, y, playerHalf, r) {
			continue
		}

		closestX := clamp(x, r.X, r.X+r.Width)
		closestY := clamp(y, r.Y, r.Y+r.Height)
		dx := x - closestX
		dy := y - closestY
		distSq := dx*dx + dy*dy

		if distSq == 0 {
			// Center is inside the rect; push out along the shallowest side.
			left := math.Abs(x - r.X)
			right := math.Abs((r.X + r.Width) - x)
			top := math.Abs(y - r.Y)
			bottom := math.Abs((r.Y + r.Height) - y)

			minDist := left
			direction := 0
			if right < minDist {
				minDist = right
				direction = 1
			}
			if top < minDist {
				minDist = top
				direction = 2
			}
			if bottom < minDist {
				direction = 3
			}

			switch direction {
			case 0:
				p.Transform.Position.X = r.X - playerHalf
			case 1:
				p.Transform.Position.X = r.X + r.Width + playerHalf
			case 2:
				p.Transform.Position.Y = r.Y - playerHalf
			case 3:
				p.Transform.Position.Y = r.Y + r.Height + playerHalf
			}
		} else {
			dist := math.Sqrt(distSq)
			if dist < playerHalf {
				overlap := playerHalf - dist
				p.Transform.Position.X += dx / dist * overlap
				p.Transform.Position.Y += dy / dist * overlap
			}
		}

		p.Transform.Position.X = clamp(p.Transform.Position.X, playerHalf, worldWidth-playerHalf)
		p.Transform.Position.Y = clamp(p.Transform.Position.Y, playerHalf, worldHeight-playerHalf)
	}
}

// resolvePlayerCollisions separates overlapping players with a bounded number
// of pairwise passes.
func resolvePlayerCollisions(players []*PlayerState, rects []Rect) {
	if len(players) < 2 {
		return
	}

	const iterations = 4
	for iter := 0; iter < iterations; iter++ {
		adjusted := false
		for i := 0; i < len(players); i++ {
			for j := i + 1; j < len(players); j++ {
				p1 := players[i]
				p2 := players[j]
				dx := p2.Transform.Position.X - p1.Transform.Position.X
				dy := p2.Transform.Position.Y - p1.Transform.Position.Y
				distSq := dx*dx + dy*dy
				minDist := playerHalf * 2

				var dist float64
				if distSq == 0 {
					dx = 1
					dy = 0
					dist = 1
				} else {
					dist = math.Sqrt(distSq)
				}

				if dist >= minDist {
					continue
				}

				overlap := (minDist - dist) / 2
				nx := dx / dist
				ny := dy / dist

				p1.Transform.Position.X = clamp(p1.Transform.Position.X-nx*overlap, playerHalf, worldWidth-playerHalf)
				p1.Transform.Position.Y = clamp(p1.Transform.Position.Y-ny*overlap, playerHalf, worldHeight-playerHalf)
				p2.Transform.Position.X = clamp(p2.Transform.Position.X+nx*overlap, playerHalf, worldWidth-playerHalf)
				p2.Transform.Position.Y = clamp(p2.Transform.Position.Y+ny*overlap, playerHalf, worldHeight-playerHalf)

				resolveWallPenetration(p1, rects)
				resolveWallPenetration(p2, rects)

				adjusted = true
			}
		}

		if !adjusted {
			break
		}
	}
}
