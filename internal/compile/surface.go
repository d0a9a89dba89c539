// Package compile provides the built-in compiler front-end used when no
// external compiler is wired in. It produces deterministic interfaces from a
// module's public surface: exported names come from the exposing list and the
// fingerprint chains over the source and every dependency fingerprint, so an
// interface changes exactly when the module or anything it depends on does.
package compile

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"github.com/abadi199/elm-make/internal/errors"
	"github.com/abadi199/elm-make/internal/project"
)

var (
	exposingRe = regexp.MustCompile(`module\s+[A-Za-z0-9._]+\s+exposing\s*\(`)
	valueDefRe = regexp.MustCompile(`^([a-z][A-Za-z0-9_]*)\b`)
	typeDefRe  = regexp.MustCompile(`^type\s+(?:alias\s+)?([A-Z][A-Za-z0-9_]*)`)
	portDefRe  = regexp.MustCompile(`^port\s+([a-z][A-Za-z0-9_]*)\s*:`)
)

// keywords that can open a top-level line without defining a value
var nonDefKeywords = map[string]bool{
	"module": true,
	"import": true,
	"type":   true,
	"port":   true,
	"infix":  true,
}

// Surface implements build.CompileFunc.
func Surface(_ context.Context, id project.ModuleID, source []byte, deps map[project.ModuleID]project.Interface) (project.Interface, []byte, error) {
	defs := topLevelDefinitions(source)
	exposed := exposedNames(source)

	exports := make(map[string]string)
	if len(exposed) == 1 && exposed[0] == ".." {
		for name, kind := range defs {
			exports[name] = kind
		}
	} else {
		var missing []string
		for _, name := range exposed {
			base := strings.TrimSuffix(name, "(..)")
			if kind, ok := defs[base]; ok {
				exports[base] = kind
			} else {
				missing = append(missing, base)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			diags := make([]errors.Diagnostic, 0, len(missing))
			for _, name := range missing {
				diags = append(diags, errors.Diagnostic{
					Title:   "EXPOSING UNKNOWN",
					Message: "the exposing list mentions " + name + " but it is not defined in this module",
				})
			}
			return project.Interface{}, nil, errors.CompilerErrors("", id, diags)
		}
	}

	iface := project.Interface{
		Fingerprint: fingerprint(source, deps),
		Exports:     exports,
	}
	return iface, source, nil
}

func fingerprint(source []byte, deps map[project.ModuleID]project.Interface) string {
	depPrints := make([]string, 0, len(deps))
	for id, iface := range deps {
		depPrints = append(depPrints, id.String()+"="+iface.Fingerprint)
	}
	sort.Strings(depPrints)

	h := sha256.New()
	h.Write(source)
	for _, dp := range depPrints {
		h.Write([]byte{0})
		h.Write([]byte(dp))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func exposedNames(source []byte) []string {
	header := string(normalizeHeader(source))
	loc := exposingRe.FindStringIndex(header)
	if loc == nil {
		return []string{".."}
	}

	// Walk to the matching close paren; exposing lists may nest, e.g.
	// "exposing (Foo(..), bar)".
	depth := 1
	var list strings.Builder
	var names []string
	flush := func() {
		name := strings.TrimSpace(list.String())
		list.Reset()
		if name != "" {
			names = append(names, name)
		}
	}
	for _, r := range header[loc[1]:] {
		switch r {
		case '(':
			depth++
			list.WriteRune(r)
		case ')':
			depth--
			if depth == 0 {
				flush()
				if len(names) == 0 {
					return []string{".."}
				}
				return names
			}
			list.WriteRune(r)
		case ',':
			if depth == 1 {
				flush()
			} else {
				list.WriteRune(r)
			}
		default:
			list.WriteRune(r)
		}
	}
	return []string{".."}
}

// normalizeHeader flattens the first lines so a multi-line exposing list
// still matches.
func normalizeHeader(source []byte) []byte {
	const headerWindow = 4096
	if len(source) > headerWindow {
		source = source[:headerWindow]
	}
	return bytes.ReplaceAll(source, []byte("\n"), []byte(" "))
}

func topLevelDefinitions(source []byte) map[string]string {
	defs := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := typeDefRe.FindStringSubmatch(line); m != nil {
			defs[m[1]] = "type"
			continue
		}
		if m := portDefRe.FindStringSubmatch(line); m != nil {
			defs[m[1]] = "port"
			continue
		}
		// A top-level lowercase identifier followed by an annotation or a
		// definition body, possibly with parameters in between.
		if m := valueDefRe.FindStringSubmatch(line); m != nil {
			if !nonDefKeywords[m[1]] && strings.ContainsAny(line, ":=") {
				defs[m[1]] = "value"
			}
		}
	}
	return defs
}
