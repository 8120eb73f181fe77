package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AlertKind is the condition family of a rule. The values are the
// serialized "type" field of the rules document.
type AlertKind string

const (
	KindPriceHigh   AlertKind = "high"
	KindPriceLow    AlertKind = "low"
	KindStatusMatch AlertKind = "status"
)

// DefaultSound is used when a rule is created without a sound.
const DefaultSound = "sons/Alerta.wav"

// AlertRule belongs to exactly one monitored symbol. ID is stable for the
// lifetime of the rule. Armed and Revision are runtime state owned by the
// rule store and are not persisted.
type AlertRule struct {
	ID    string    `json:"id"`
	Kind  AlertKind `json:"type"`
	Price float64   `json:"price,omitempty"`
	Value string    `json:"value,omitempty"`
	Notes string    `json:"notes"`
	Sound string    `json:"sound"`

	Armed    bool `json:"-"`
	Revision int  `json:"-"`
}

// Validate checks the fields required by the rule kind.
func (r *AlertRule) Validate() error {
	switch r.Kind {
	case KindPriceHigh, KindPriceLow:
		if r.Price <= 0 {
			return fmt.Errorf("%s rule: price must be positive", r.Kind)
		}
	case KindStatusMatch:
		if !IsStatusTarget(r.Value) {
			return fmt.Errorf("status rule: unknown value %q", r.Value)
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.Kind)
	}
	return nil
}

// Describe returns the short trigger text used in history and chat messages.
func (r *AlertRule) Describe() string {
	if r.Kind == KindStatusMatch {
		return "Status: " + r.Value
	}
	return fmt.Sprintf("%s @ $%s", strings.ToUpper(string(r.Kind)), FormatPrice(r.Price))
}

// MonitoredSymbol is a symbol id with its ordered rules.
type MonitoredSymbol struct {
	Symbol string      `json:"symbol"`
	Alerts []AlertRule `json:"alerts"`
}

// Firing is one ARMED to FIRED transition of a rule.
type Firing struct {
	ID      string    `json:"id"`
	Symbol  string    `json:"symbol"`
	Display string    `json:"display"`
	Rule    AlertRule `json:"rule"`
	Price   float64   `json:"price"`
	At      time.Time `json:"at"`
}

// ErrDataUnavailable marks a quote or candle series that could not be fetched.
var ErrDataUnavailable = errors.New("data unavailable")

// PersistenceError is returned when a rules or history write fails. The
// in-memory change has already been applied.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConfigParseError reports a rules document that could not be parsed.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// DeliveryError reports a failed external push.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
