// Copyright (C) 2026 tablelog contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deltakit/tablelog/pkg/schema"
)

func TestValidateLastCheckpointHint(t *testing.T) {
	assert.NoError(t, schema.Validate(schema.LastCheckpointHint, strings.NewReader(`{"version": 5, "size": 100}`)))
	assert.Error(t, schema.Validate(schema.LastCheckpointHint, strings.NewReader(`{"size": 100}`)))
}

func TestValidateConfig(t *testing.T) {
	assert.NoError(t, schema.Validate(schema.Config, strings.NewReader(`{"storage": {"kind": "file", "path": "./x"}}`)))
}
