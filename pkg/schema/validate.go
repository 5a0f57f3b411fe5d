// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind selects which embedded JSON Schema Validate checks against.
type Kind int

const (
	LastCheckpointHint Kind = iota + 1
	Config
)

//go:embed schemas/*
var schemaFiles embed.FS

func load(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Host + u.Path)
}

func init() {
	jsonschema.Loaders["embedfs"] = load
}

// Validate decodes r as JSON and checks it against the schema named by k.
func Validate(k Kind, r io.Reader) error {
	var s *jsonschema.Schema
	var err error

	switch k {
	case LastCheckpointHint:
		s, err = jsonschema.Compile("embedfs://schemas/last_checkpoint.schema.json")
	case Config:
		s, err = jsonschema.Compile("embedfs://schemas/config.schema.json")
	default:
		return fmt.Errorf("schema: unknown kind %d", k)
	}
	if err != nil {
		return fmt.Errorf("schema: compile: %w", err)
	}

	var v interface{}
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return fmt.Errorf("schema: decode: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: validate: %w", err)
	}
	return nil
}
