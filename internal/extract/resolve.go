package extract

import (
	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
)

const (
	fieldCreditAmount  = "credit_amount"
	fieldDebitAmount   = "debit_amount"
	fieldAccountHolder = "account_holder"
	fieldMICR          = "micr"
)

// resolveUPI infers direction from a lone counterparty when no direction phrase matched.
func resolveUPI(w map[string]candidate) []entity.Warning {
	if _, ok := w[entity.FieldDirection]; ok {
		return nil
	}
	sender, hasSender := w[entity.FieldSender]
	receiver, hasReceiver := w[entity.FieldReceiver]
	switch {
	case hasReceiver && !hasSender:
		w[entity.FieldDirection] = candidate{raw: string(constants.Debit), conf: receiver.conf * 0.8, rule: "upi_direction_from_receiver"}
	case hasSender && !hasReceiver:
		w[entity.FieldDirection] = candidate{raw: string(constants.Credit), conf: sender.conf * 0.8, rule: "upi_direction_from_sender"}
	}
	return nil
}

// resolvePassbook folds credit/debit columns into amount + direction, places the
// account holder on the right side of the transfer and keeps MICR digits out of
// the IFSC and account fields.
func resolvePassbook(w map[string]candidate) []entity.Warning {
	var warns []entity.Warning

	if micr, ok := w[fieldMICR]; ok {
		for _, f := range []string{entity.FieldIFSC, entity.FieldAccountNumber} {
			if c, ok := w[f]; ok && c.raw == micr.raw {
				delete(w, f)
			}
		}
	}

	credit, hasCredit := w[fieldCreditAmount]
	debit, hasDebit := w[fieldDebitAmount]
	var chosen candidate
	var dir constants.Direction
	switch {
	case hasCredit && hasDebit:
		chosen, dir = credit, constants.Credit
		if debit.conf > credit.conf || (debit.conf == credit.conf && debit.pos < credit.pos) {
			chosen, dir = debit, constants.Debit
		}
		warns = append(warns, entity.Warning{
			Field:   entity.FieldAmount,
			Code:    constants.WarnAmountAmbiguous,
			Message: "both credit and debit amounts present; kept " + string(dir),
		})
	case hasCredit:
		chosen, dir = credit, constants.Credit
	case hasDebit:
		chosen, dir = debit, constants.Debit
	}
	if dir != "" {
		if _, ok := w[entity.FieldAmount]; !ok {
			w[entity.FieldAmount] = chosen
		}
		w[entity.FieldDirection] = candidate{raw: string(dir), conf: chosen.conf, rule: chosen.rule, pos: chosen.pos}
	}

	if holder, ok := w[fieldAccountHolder]; ok {
		target := entity.FieldSender
		if d, ok := w[entity.FieldDirection]; ok && d.raw == string(constants.Credit) {
			target = entity.FieldReceiver
		}
		if _, taken := w[target]; !taken {
			w[target] = holder
		}
	}
	return warns
}
