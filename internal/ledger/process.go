// Package ledger admits production transactions into the append-only ledger and reads
// them back as a flat, process-agnostic row stream.
package ledger

import (
	"fmt"
	"strings"

	"github.com/convertline/convertline/internal/shared"
)

// ProcessCode is the numeric process type used by reports and progress inference.
type ProcessCode int

const (
	CodePrinting   ProcessCode = 31
	CodeRewinding  ProcessCode = 32
	CodeLamination ProcessCode = 33
	CodeSlitting   ProcessCode = 34
	CodeCore       ProcessCode = 35
)

// KnownCodes lists every process code the ledger can produce, in numeric order.
var KnownCodes = []ProcessCode{CodePrinting, CodeRewinding, CodeLamination, CodeSlitting, CodeCore}

var codeNames = map[ProcessCode]string{
	CodePrinting:   "Printing",
	CodeRewinding:  "Rewinding",
	CodeLamination: "Lamination",
	CodeSlitting:   "Slitting",
	CodeCore:       "Core",
}

// Name returns the display name, or "Unknown (<code>)" for codes outside KnownCodes.
func (c ProcessCode) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Unknown (%d)", int(c))
}

// Known reports whether c is one of KnownCodes.
func (c ProcessCode) Known() bool {
	_, ok := codeNames[c]
	return ok
}

// Kind selects a transaction variant.
type Kind string

const (
	KindPrinting   Kind = "printing"
	KindRewinding  Kind = "rewinding"
	KindLamination Kind = "lamination"
	KindSlitting   Kind = "slitting"
	KindCore       Kind = "core"
)

var kindCodes = map[Kind]ProcessCode{
	KindPrinting:   CodePrinting,
	KindRewinding:  CodeRewinding,
	KindLamination: CodeLamination,
	KindSlitting:   CodeSlitting,
	KindCore:       CodeCore,
}

// ParseKind maps a URL segment to a Kind.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := kindCodes[k]; !ok {
		return "", shared.Reject(shared.ErrInvalidInput, "unknown transaction kind %q", raw)
	}
	return k, nil
}

// Code returns the process code of the kind.
func (k Kind) Code() ProcessCode {
	return kindCodes[k]
}

// Table is the storage table of the kind.
func (k Kind) Table() string {
	return "trans_" + string(k)
}
