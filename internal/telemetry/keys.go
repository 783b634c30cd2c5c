package telemetry

// Metric keys shared between the simulation loop, rooms, and the
// diagnostics endpoint. Keeping them here stops the string literals from
// drifting apart across packages.
const (
	KeyTickDurationMicros  = "sim_tick_duration_micros"
	KeyTickOverBudgetTotal = "sim_tick_over_budget_total"
	KeyCommandDropsTotal   = "sim_command_drops_total"
	KeyBroadcastBytesTotal = "net_broadcast_bytes_total"
	KeyBroadcastsTotal     = "net_broadcasts_total"
	KeyEntitiesBroadcast   = "net_broadcast_entities"
	KeyRoomsOpen           = "server_rooms_open"
	KeyPlayersOnline       = "server_players_online"
)
