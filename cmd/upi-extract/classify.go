package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/upi-extractor/internal/entity"
	"github.com/joseph-ayodele/upi-extractor/internal/ocr"
)

var classifyType string

var classifyCmd = &cobra.Command{
	Use:   "classify <text-file|->...",
	Short: "Classify OCR text and print the extracted record as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		override, err := parseOverride(classifyType)
		if err != nil {
			return err
		}
		a, err := newApp(cfg, logger, true)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		for _, name := range args {
			text, err := readText(cmd.InOrStdin(), name)
			if err != nil {
				return err
			}
			rec := a.processor.ProcessText(ocr.Normalize(text), nil, name, override)
			if err := enc.Encode(view(rec)); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyType, "type", "t", "auto", "force the document type: upi, passbook, unknown or auto")
	rootCmd.AddCommand(classifyCmd)
}

func readText(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}

// recordView is the printable form of a record; amounts keep their exact decimal.
type recordView struct {
	Source     string             `json:"source"`
	Type       string             `json:"type"`
	Amount     string             `json:"amount,omitempty"`
	Direction  string             `json:"direction"`
	Date       string             `json:"date,omitempty"`
	Time       string             `json:"time,omitempty"`
	Sender     string             `json:"sender,omitempty"`
	Receiver   string             `json:"receiver,omitempty"`
	Account    string             `json:"account_number,omitempty"`
	IFSC       string             `json:"ifsc,omitempty"`
	TxnID      string             `json:"transaction_id,omitempty"`
	Confidence map[string]float64 `json:"field_confidence"`
	Extras     map[string]string  `json:"extras,omitempty"`
	Warnings   []entity.Warning   `json:"warnings,omitempty"`
}

func view(r *entity.Record) recordView {
	v := recordView{
		Source:     r.ImageRef,
		Type:       string(r.SourceType),
		Direction:  string(r.Direction),
		Date:       r.DateString(),
		Time:       r.TimeString(),
		Sender:     entity.StrOrEmpty(r.Counterparty.Sender),
		Receiver:   entity.StrOrEmpty(r.Counterparty.Receiver),
		Account:    entity.StrOrEmpty(r.AccountNumber),
		IFSC:       entity.StrOrEmpty(r.IFSC),
		TxnID:      entity.StrOrEmpty(r.TransactionID),
		Confidence: r.FieldConfidence,
		Extras:     r.Extras,
		Warnings:   r.Warnings,
	}
	if r.Amount != nil {
		v.Amount = r.Amount.StringFixed(2)
	}
	return v
}
