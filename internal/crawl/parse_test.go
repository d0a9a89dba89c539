package crawl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, content string) (imports []string, declared string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mod.elm")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	imports, declared, err := parseSource(path)
	require.NoError(t, err)
	return imports, declared
}

func TestParseSource_Basic(t *testing.T) {
	imports, declared := parseString(t, `module Main exposing (main)

import Html
import Json.Decode

main = 1
`)
	assert.Equal(t, "Main", declared)
	assert.Equal(t, []string{"Html", "Json.Decode"}, imports)
}

func TestParseSource_PortAndEffectModules(t *testing.T) {
	_, declared := parseString(t, "port module Ports exposing (send)\n")
	assert.Equal(t, "Ports", declared)

	_, declared = parseString(t, "effect module Time exposing (every)\n")
	assert.Equal(t, "Time", declared)
}

func TestParseSource_MultiLineExposing(t *testing.T) {
	imports, declared := parseString(t, `module Api exposing
    ( get
    , post
    )

import Http

get = 1
`)
	assert.Equal(t, "Api", declared)
	assert.Equal(t, []string{"Http"}, imports)
}

func TestParseSource_CommentsSkipped(t *testing.T) {
	imports, declared := parseString(t, `-- a line comment
{- a block
   comment -}
module Main exposing (..)

-- before the import
import Html

main = 1
`)
	assert.Equal(t, "Main", declared)
	assert.Equal(t, []string{"Html"}, imports)
}

func TestParseSource_ImportsStopAtFirstDefinition(t *testing.T) {
	imports, _ := parseString(t, `module Main exposing (..)

import Html

main =
    let
        fake = "import NotAnImport"
    in
    fake
`)
	assert.Equal(t, []string{"Html"}, imports)
}

func TestParseSource_DuplicateImportsDeduped(t *testing.T) {
	imports, _ := parseString(t, `module Main exposing (..)

import Html
import Html

main = 1
`)
	assert.Equal(t, []string{"Html"}, imports)
}
