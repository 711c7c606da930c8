package main

import (
	"strings"
	"testing"
)

const sample = `package sqlinline

const QGood = ` + "`" + `
--sql 6f1c2d3e-4a5b-4c6d-8e9f-0a1b2c3d4e5f
SELECT 1
` + "`" + `

const QCopy = ` + "`" + `
--sql 6f1c2d3e-4a5b-4c6d-8e9f-0a1b2c3d4e5f
SELECT 2
` + "`" + `

const QBare = "UPDATE generation_jobs SET status = 'FAILED'"

const notSQL = "hello world"
`

func TestLintFile(t *testing.T) {
	stmts, findings, err := lintFile("sample.go", sample)
	if err != nil {
		t.Fatalf("lintFile returned error: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("statements = %d, want 2", len(stmts))
	}
	if len(findings) != 1 || findings[0].name != "QBare" {
		t.Fatalf("findings = %v", findings)
	}

	dups := duplicates(stmts)
	if len(dups) != 1 || dups[0].name != "QCopy" || !strings.Contains(dups[0].message, "QGood") {
		t.Fatalf("duplicates = %v", dups)
	}
}

func TestRepositoryStatementsPass(t *testing.T) {
	stmts, findings, err := lintPath("../../sqlinline")
	if err != nil {
		t.Fatalf("lintPath returned error: %v", err)
	}
	findings = append(findings, duplicates(stmts)...)
	if len(findings) > 0 {
		t.Fatalf("findings: %v", findings)
	}
	if len(stmts) == 0 {
		t.Fatal("no statements found")
	}
}
