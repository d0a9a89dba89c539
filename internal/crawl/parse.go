package crawl

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

var (
	moduleRe = regexp.MustCompile(`^(?:port\s+|effect\s+)?module\s+([A-Za-z][A-Za-z0-9_]*(?:\.[A-Za-z][A-Za-z0-9_]*)*)`)
	importRe = regexp.MustCompile(`^import\s+([A-Za-z][A-Za-z0-9_]*(?:\.[A-Za-z][A-Za-z0-9_]*)*)`)
)

// parseSource extracts the declared module name (empty if the file has no
// header, which is allowed for entry points) and the list of imported module
// names. Only the header region is scanned; imports must appear before the
// first definition, per the language grammar.
func parseSource(path string) (imports []string, declared string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	seen := make(map[string]bool)
	inBlockComment := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if inBlockComment > 0 {
			inBlockComment += strings.Count(line, "{-") - strings.Count(line, "-}")
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		// Indented lines are continuations (e.g. a multi-line exposing list).
		if trimmed != line {
			continue
		}
		if strings.HasPrefix(trimmed, "{-") {
			inBlockComment = strings.Count(line, "{-") - strings.Count(line, "-}")
			continue
		}

		if m := moduleRe.FindStringSubmatch(trimmed); m != nil {
			declared = m[1]
			continue
		}
		if m := importRe.FindStringSubmatch(trimmed); m != nil {
			if !seen[m[1]] {
				seen[m[1]] = true
				imports = append(imports, m[1])
			}
			continue
		}

		// First top-level definition ends the header.
		break
	}
	if err := scanner.Err(); err != nil {
		return nil, "", err
	}
	return imports, declared, nil
}
