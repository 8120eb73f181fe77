package model

import "time"

// HistoryTimeLayout is the local timestamp format of history records.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// HistoryRecord is one fired alert in the append-only history.
type HistoryRecord struct {
	Timestamp string `json:"timestamp" csv:"timestamp"`
	Symbol    string `json:"symbol" csv:"symbol"`
	Trigger   string `json:"trigger" csv:"trigger"`
	Notes     string `json:"notes" csv:"notes"`
}

// NewHistoryRecord stamps a record with the local time t.
func NewHistoryRecord(t time.Time, symbol, trigger, notes string) HistoryRecord {
	return HistoryRecord{
		Timestamp: t.Local().Format(HistoryTimeLayout),
		Symbol:    symbol,
		Trigger:   trigger,
		Notes:     notes,
	}
}

// DisplayRow is the per-cycle view of one monitored symbol.
type DisplayRow struct {
	Symbol       string             `json:"symbol"`
	Display      string             `json:"display"`
	Source       Source             `json:"source,omitempty"`
	Price        float64            `json:"price"`
	ChangePct24h float64            `json:"changePct24h"`
	Stale        bool               `json:"stale,omitempty"`
	Indicators   *IndicatorSnapshot `json:"indicators,omitempty"`
	MarketCap    float64            `json:"marketCap,omitempty"`
	FDV          float64            `json:"fdv,omitempty"`
	MCapFDVRatio float64            `json:"mcapFdvRatio,omitempty"`
	Error        string             `json:"error,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}
