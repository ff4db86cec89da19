package service

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/model"
	"github.com/snaplyticdigital-coder/myreceipt-app-sub000/internal/relief"
)

// ReportEntry is one claimable line item in the relief report.
type ReportEntry struct {
	Merchant string  `json:"merchant"`
	Date     string  `json:"date"`
	Item     string  `json:"item"`
	Amount   float64 `json:"amount"`
}

// ReportGroup is one relief category's section of the report.
type ReportGroup struct {
	Category  model.Category `json:"category"`
	Limit     float64        `json:"limit,omitempty"`
	Unlimited bool           `json:"unlimited,omitempty"`
	Entries   []ReportEntry  `json:"entries"`
	Subtotal  float64        `json:"subtotal"`
	Exceeded  bool           `json:"exceeded,omitempty"`
	Excess    float64        `json:"excess,omitempty"`
}

// ReliefReport is the per-assessment-year export structure. It is derived
// entirely from the ledger output plus receipt metadata; the rendering layer
// adds no computation of its own.
type ReliefReport struct {
	Year       int           `json:"year"`
	Groups     []ReportGroup `json:"groups"`
	GrandTotal float64       `json:"grandTotal"`
}

// BuildReliefReport groups the year's claimable line items by category, in
// catalog display order, with each group's limit, entries, subtotal and the
// grand total across categories. Categories with no claims are omitted.
func BuildReliefReport(year int, receipts []model.Receipt, ledger map[model.Category]relief.LedgerEntry) *ReliefReport {
	entries := make(map[model.Category][]ReportEntry)
	for _, r := range receipts {
		if !r.Claimable || r.Year() != year {
			continue
		}
		for _, item := range r.Items {
			if !item.Claim.Claimable || item.Claim.Tag == "" {
				continue
			}
			entries[item.Claim.Tag] = append(entries[item.Claim.Tag], ReportEntry{
				Merchant: r.Merchant,
				Date:     r.Date,
				Item:     item.Name,
				Amount:   item.Amount(),
			})
		}
	}

	report := &ReliefReport{Year: year}
	for _, category := range model.Categories() {
		group := entries[category]
		if len(group) == 0 {
			continue
		}
		entry := ledger[category]
		report.Groups = append(report.Groups, ReportGroup{
			Category:  category,
			Limit:     entry.Limit,
			Unlimited: entry.Unlimited,
			Entries:   group,
			Subtotal:  entry.Claimed,
			Exceeded:  entry.Exceeded,
			Excess:    entry.Excess,
		})
		report.GrandTotal += entry.Claimed
	}
	return report
}

// ToXLSX renders the report as a spreadsheet: one header block per category
// group, its entries, a subtotal row, and a closing grand-total row.
func (r *ReliefReport) ToXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("Relief %d", r.Year)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	row := 1
	setRow := func(values []interface{}, style int) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		if style != 0 {
			end, err := excelize.CoordinatesToCellName(len(values), row)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, end, style); err != nil {
				return err
			}
		}
		row++
		return nil
	}

	if err := setRow([]interface{}{fmt.Sprintf("LHDN Tax Relief Report - Assessment Year %d", r.Year)}, bold); err != nil {
		return nil, err
	}
	row++

	for _, group := range r.Groups {
		limit := "no limit"
		if !group.Unlimited {
			limit = fmt.Sprintf("limit RM%.2f", group.Limit)
		}
		if err := setRow([]interface{}{fmt.Sprintf("%s (%s)", group.Category, limit)}, bold); err != nil {
			return nil, err
		}
		if err := setRow([]interface{}{"Merchant", "Date", "Item", "Amount (RM)"}, bold); err != nil {
			return nil, err
		}
		for _, entry := range group.Entries {
			if err := setRow([]interface{}{entry.Merchant, entry.Date, entry.Item, entry.Amount}, 0); err != nil {
				return nil, err
			}
		}
		subtotal := []interface{}{"", "", "Subtotal", group.Subtotal}
		if err := setRow(subtotal, bold); err != nil {
			return nil, err
		}
		if group.Exceeded {
			if err := setRow([]interface{}{"", "", "Over limit by", group.Excess}, 0); err != nil {
				return nil, err
			}
		}
		row++
	}

	if err := setRow([]interface{}{"", "", "Grand total", r.GrandTotal}, bold); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
