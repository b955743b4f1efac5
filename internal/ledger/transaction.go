package ledger

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/convertline/convertline/internal/shared"
)

// Envelope holds the fields every transaction carries regardless of process.
type Envelope struct {
	ID                  int64           `json:"id"`
	Date                time.Time       `json:"date" validate:"required"`
	JobOrderID          int64           `json:"job_order_id" validate:"required,gt=0"`
	MachineID           int64           `json:"machine_id" validate:"required,gt=0"`
	OperatorID          int64           `json:"operator_id" validate:"required,gt=0"`
	StartAt             *time.Time      `json:"start_at,omitempty"`
	EndAt               *time.Time      `json:"end_at,omitempty"`
	MetersRun           decimal.Decimal `json:"meters_run"`
	TroubleshootMinutes decimal.Decimal `json:"troubleshoot_minutes"`
	Remarks             *string         `json:"remarks,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Minutes is the production time between start and end, zero when either is missing.
func (e Envelope) Minutes() decimal.Decimal {
	if e.StartAt == nil || e.EndAt == nil {
		return decimal.Zero
	}
	secs := int64(e.EndAt.Sub(*e.StartAt) / time.Second)
	return decimal.NewFromInt(secs).Div(decimal.NewFromInt(60))
}

// Payload is the process specific part of a transaction.
type Payload interface {
	Kind() Kind
	// CheckMassBalance rejects inputs that cannot account for outputs plus waste.
	CheckMassBalance() error
	// Produced, Waste and Balance project the payload onto ledger row quantities.
	Produced() decimal.Decimal
	Waste() decimal.Decimal
	Balance() decimal.Decimal

	quantities() map[string]decimal.Decimal
	columns() []string
	values() []any
	targets() []any
}

// Transaction is one admitted or candidate ledger entry.
type Transaction struct {
	Envelope
	Payload Payload `json:"details"`
}

// Kind returns the variant kind, or "" when no payload is set.
func (t Transaction) Kind() Kind {
	if t.Payload == nil {
		return ""
	}
	return t.Payload.Kind()
}

// NewPayload returns an empty payload for kind.
func NewPayload(kind Kind) (Payload, error) {
	switch kind {
	case KindPrinting:
		return &Printing{}, nil
	case KindRewinding:
		return &Rewinding{}, nil
	case KindLamination:
		return &Lamination{}, nil
	case KindSlitting:
		return &Slitting{}, nil
	case KindCore:
		return &Core{}, nil
	}
	return nil, shared.Reject(shared.ErrInvalidInput, "unknown transaction kind %q", kind)
}

// DecodePayload strictly decodes raw JSON into the payload for kind.
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	p, err := NewPayload(kind)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, shared.Reject(shared.ErrInvalidInput, "%s details are required", kind)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, shared.Reject(shared.ErrInvalidInput, "decode %s details: %v", kind, err)
	}
	return p, nil
}

func massBalance(input, output, waste decimal.Decimal, label string) error {
	if input.LessThan(output.Add(waste)) {
		return shared.Reject(shared.ErrMassBalanceViolation, "%s %s is less than output %s + wastage %s",
			label, input.String(), output.String(), waste.String())
	}
	return nil
}

// Printing: input_mat_kg >= printed_kg + wastage_kg.
type Printing struct {
	ProductName    *string         `json:"product_name,omitempty"`
	InputMatKg     decimal.Decimal `json:"input_mat_kg"`
	PrintedKg      decimal.Decimal `json:"printed_kg"`
	WastageKg      decimal.Decimal `json:"wastage_kg"`
	TotalOutputQty decimal.Decimal `json:"total_output_qty"`
}

func (p *Printing) Kind() Kind { return KindPrinting }

func (p *Printing) CheckMassBalance() error {
	return massBalance(p.InputMatKg, p.PrintedKg, p.WastageKg, "input material")
}

func (p *Printing) Produced() decimal.Decimal { return p.PrintedKg }
func (p *Printing) Waste() decimal.Decimal { return p.WastageKg }
func (p *Printing) Balance() decimal.Decimal { return p.TotalOutputQty }

func (p *Printing) quantities() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"input_mat_kg":     p.InputMatKg,
		"printed_kg":       p.PrintedKg,
		"wastage_kg":       p.WastageKg,
		"total_output_qty": p.TotalOutputQty,
	}
}

func (p *Printing) columns() []string {
	return []string{"product_name", "input_mat_kg", "printed_kg", "wastage_kg", "total_output_qty"}
}

func (p *Printing) values() []any {
	return []any{p.ProductName, p.InputMatKg, p.PrintedKg, p.WastageKg, p.TotalOutputQty}
}

func (p *Printing) targets() []any {
	return []any{&p.ProductName, &p.InputMatKg, &p.PrintedKg, &p.WastageKg, &p.TotalOutputQty}
}

// Rewinding: input_weight >= output_weight + wastage.
type Rewinding struct {
	InputWeight  decimal.Decimal `json:"input_weight"`
	OutputWeight decimal.Decimal `json:"output_weight"`
	Wastage      decimal.Decimal `json:"wastage"`
	ActualOutput decimal.Decimal `json:"actual_output"`
	QCNotes      *string         `json:"qc_notes,omitempty"`
}

func (p *Rewinding) Kind() Kind { return KindRewinding }

func (p *Rewinding) CheckMassBalance() error {
	return massBalance(p.InputWeight, p.OutputWeight, p.Wastage, "input weight")
}

func (p *Rewinding) Produced() decimal.Decimal { return p.OutputWeight }
func (p *Rewinding) Waste() decimal.Decimal { return p.Wastage }
func (p *Rewinding) Balance() decimal.Decimal { return p.ActualOutput }

func (p *Rewinding) quantities() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"input_weight":  p.InputWeight,
		"output_weight": p.OutputWeight,
		"wastage":       p.Wastage,
		"actual_output": p.ActualOutput,
	}
}

func (p *Rewinding) columns() []string {
	return []string{"input_weight", "output_weight", "wastage", "actual_output", "qc_notes"}
}

func (p *Rewinding) values() []any {
	return []any{p.InputWeight, p.OutputWeight, p.Wastage, p.ActualOutput, p.QCNotes}
}

func (p *Rewinding) targets() []any {
	return []any{&p.InputWeight, &p.OutputWeight, &p.Wastage, &p.ActualOutput, &p.QCNotes}
}

// Lamination: plain_weight + printed_weight >= laminated_weight + wastage.
type Lamination struct {
	PlainWeight     decimal.Decimal `json:"plain_weight"`
	PrintedWeight   decimal.Decimal `json:"printed_weight"`
	LaminatedWeight decimal.Decimal `json:"laminated_weight"`
	Wastage         decimal.Decimal `json:"wastage"`
	ActualOutput    decimal.Decimal `json:"actual_output"`
	QCNotes         *string         `json:"qc_notes,omitempty"`
}

func (p *Lamination) Kind() Kind { return KindLamination }

func (p *Lamination) CheckMassBalance() error {
	return massBalance(p.PlainWeight.Add(p.PrintedWeight), p.LaminatedWeight, p.Wastage, "plain + printed input")
}

func (p *Lamination) Produced() decimal.Decimal { return p.LaminatedWeight }
func (p *Lamination) Waste() decimal.Decimal { return p.Wastage }
func (p *Lamination) Balance() decimal.Decimal { return p.ActualOutput }

func (p *Lamination) quantities() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"plain_weight":     p.PlainWeight,
		"printed_weight":   p.PrintedWeight,
		"laminated_weight": p.LaminatedWeight,
		"wastage":          p.Wastage,
		"actual_output":    p.ActualOutput,
	}
}

func (p *Lamination) columns() []string {
	return []string{"plain_weight", "printed_weight", "laminated_weight", "wastage", "actual_output", "qc_notes"}
}

func (p *Lamination) values() []any {
	return []any{p.PlainWeight, p.PrintedWeight, p.LaminatedWeight, p.Wastage, p.ActualOutput, p.QCNotes}
}

func (p *Lamination) targets() []any {
	return []any{&p.PlainWeight, &p.PrintedWeight, &p.LaminatedWeight, &p.Wastage, &p.ActualOutput, &p.QCNotes}
}

// Slitting: waste_weight <= input_weight. Output is counted in pieces so no full
// balance is possible.
type Slitting struct {
	InputWeight decimal.Decimal `json:"input_weight"`
	TargetWidth decimal.Decimal `json:"target_width"`
	OutputPcs   int64           `json:"output_pcs"`
	WasteWeight decimal.Decimal `json:"waste_weight"`
}

func (p *Slitting) Kind() Kind { return KindSlitting }

func (p *Slitting) CheckMassBalance() error {
	if p.WasteWeight.GreaterThan(p.InputWeight) {
		return shared.Reject(shared.ErrMassBalanceViolation, "waste %s exceeds input weight %s",
			p.WasteWeight.String(), p.InputWeight.String())
	}
	return nil
}

func (p *Slitting) Produced() decimal.Decimal { return p.InputWeight.Sub(p.WasteWeight) }
func (p *Slitting) Waste() decimal.Decimal { return p.WasteWeight }
func (p *Slitting) Balance() decimal.Decimal { return decimal.NewFromInt(p.OutputPcs) }

func (p *Slitting) quantities() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"input_weight": p.InputWeight,
		"target_width": p.TargetWidth,
		"output_pcs":   decimal.NewFromInt(p.OutputPcs),
		"waste_weight": p.WasteWeight,
	}
}

func (p *Slitting) columns() []string {
	return []string{"input_weight", "target_width", "output_pcs", "waste_weight"}
}

func (p *Slitting) values() []any {
	return []any{p.InputWeight, p.TargetWidth, p.OutputPcs, p.WasteWeight}
}

func (p *Slitting) targets() []any {
	return []any{&p.InputWeight, &p.TargetWidth, &p.OutputPcs, &p.WasteWeight}
}

// Core: before_weight >= output_weight + wastage.
type Core struct {
	BeforeWeight decimal.Decimal `json:"before_weight"`
	OutputWeight decimal.Decimal `json:"output_weight"`
	Wastage      decimal.Decimal `json:"wastage"`
	ActualOutput decimal.Decimal `json:"actual_output"`
	QCNotes      *string         `json:"qc_notes,omitempty"`
}

func (p *Core) Kind() Kind { return KindCore }

func (p *Core) CheckMassBalance() error {
	return massBalance(p.BeforeWeight, p.OutputWeight, p.Wastage, "before weight")
}

func (p *Core) Produced() decimal.Decimal { return p.OutputWeight }
func (p *Core) Waste() decimal.Decimal { return p.Wastage }
func (p *Core) Balance() decimal.Decimal { return p.ActualOutput }

func (p *Core) quantities() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"before_weight": p.BeforeWeight,
		"output_weight": p.OutputWeight,
		"wastage":       p.Wastage,
		"actual_output": p.ActualOutput,
	}
}

func (p *Core) columns() []string {
	return []string{"before_weight", "output_weight", "wastage", "actual_output", "qc_notes"}
}

func (p *Core) values() []any {
	return []any{p.BeforeWeight, p.OutputWeight, p.Wastage, p.ActualOutput, p.QCNotes}
}

func (p *Core) targets() []any {
	return []any{&p.BeforeWeight, &p.OutputWeight, &p.Wastage, &p.ActualOutput, &p.QCNotes}
}
