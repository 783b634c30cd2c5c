package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/BritishAmericqn/trespasser-backend-sub006/weapons/catalog"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema, err := buildSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build schema: %v\n", err)
		os.Exit(1)
	}

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// buildSchema models both shapes the loader accepts: a plain array of tuning
// entries, or an object keyed by weapon type where each entry may omit its
// own type field.
func buildSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	entrySchema := reflector.ReflectFromType(reflect.TypeOf(catalog.EntryDefinition{}))
	if entrySchema == nil {
		return nil, fmt.Errorf("failed to reflect entry schema")
	}
	entrySchema.Version = ""
	entrySchema.Title = "Weapon Tuning Entry"
	entrySchema.Description = "Overrides for one weapon type; omitted fields keep the built-in numbers."
	entrySchema.AdditionalProperties = &jsonschema.Schema{}

	arraySchema := &jsonschema.Schema{
		Type:        "array",
		Title:       "Tuning Array",
		Description: "Weapon tuning expressed as an array of entry objects.",
		Items:       entrySchema,
	}

	objectSchema := &jsonschema.Schema{
		Type:                 "object",
		Title:                "Tuning Object",
		Description:          "Weapon tuning expressed as an object keyed by weapon type.",
		AdditionalProperties: entrySchema,
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Trespasser Weapon Tuning",
		Description: "Validates designer-authored entries in config/weapons/tuning.json.",
		OneOf: []*jsonschema.Schema{
			arraySchema,
			objectSchema,
		},
	}, nil
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
