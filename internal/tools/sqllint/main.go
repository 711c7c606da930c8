// Command sqllint checks that every SQL constant carries a unique
// "--sql <uuid>" marker, the contract infra.SQLRunner enforces at runtime.
//
//	go run ./internal/tools/sqllint [paths...]
//
// Paths default to internal/sqlinline.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlKeyword = regexp.MustCompile(`(?i)^\s*(?:--[^\n]*\n\s*)*(select|insert|update|delete|with|create|alter|drop)\b`)
	markerLine = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type finding struct {
	pos     token.Position
	name    string
	message string
}

func (f finding) String() string {
	return fmt.Sprintf("%s:%d %s: %s", f.pos.Filename, f.pos.Line, f.name, f.message)
}

type statement struct {
	pos    token.Position
	name   string
	marker string
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{filepath.Join("internal", "sqlinline")}
	}

	var stmts []statement
	var findings []finding
	for _, target := range targets {
		s, f, err := lintPath(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(2)
		}
		stmts = append(stmts, s...)
		findings = append(findings, f...)
	}
	findings = append(findings, duplicates(stmts)...)

	if len(findings) == 0 {
		fmt.Printf("sqllint: %d statements ok\n", len(stmts))
		return
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].String() < findings[j].String() })
	for _, f := range findings {
		fmt.Fprintln(os.Stderr, f)
	}
	os.Exit(1)
}

func lintPath(target string) ([]statement, []finding, error) {
	var stmts []statement
	var findings []finding
	err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		s, f, err := lintFile(path, nil)
		if err != nil {
			return err
		}
		stmts = append(stmts, s...)
		findings = append(findings, f...)
		return nil
	})
	return stmts, findings, err
}

// lintFile inspects string constants that look like SQL. src may be nil to
// read from disk.
func lintFile(path string, src any) ([]statement, []finding, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, 0)
	if err != nil {
		return nil, nil, err
	}

	var stmts []statement
	var findings []finding
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, value := range vs.Values {
				lit, ok := value.(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					continue
				}
				raw, err := strconv.Unquote(lit.Value)
				if err != nil || !sqlKeyword.MatchString(raw) {
					continue
				}
				name := "_"
				if i < len(vs.Names) {
					name = vs.Names[i].Name
				}
				pos := fset.Position(lit.Pos())
				head, _, _ := strings.Cut(strings.TrimSpace(raw), "\n")
				m := markerLine.FindStringSubmatch(strings.TrimSpace(head))
				if m == nil {
					findings = append(findings, finding{pos: pos, name: name, message: "missing or invalid --sql <uuid> marker"})
					continue
				}
				stmts = append(stmts, statement{pos: pos, name: name, marker: m[1]})
			}
		}
	}
	return stmts, findings, nil
}

func duplicates(stmts []statement) []finding {
	first := make(map[string]statement, len(stmts))
	var findings []finding
	for _, s := range stmts {
		if prev, ok := first[s.marker]; ok {
			findings = append(findings, finding{
				pos:     s.pos,
				name:    s.name,
				message: fmt.Sprintf("marker %s already used by %s", s.marker, prev.name),
			})
			continue
		}
		first[s.marker] = s
	}
	return findings
}
