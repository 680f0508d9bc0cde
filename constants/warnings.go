package constants

// WarningCode identifies a non-fatal condition attached to a record or a batch report.
type WarningCode string

const (
	WarnAmountMissing           WarningCode = "amount_missing"
	WarnAmountAmbiguous         WarningCode = "amount_ambiguous"
	WarnAmountUnparsable        WarningCode = "amount_unparsable"
	WarnAmountNegative          WarningCode = "amount_negative"
	WarnDateMissing             WarningCode = "date_missing"
	WarnDateUnrecognized        WarningCode = "date_unrecognized"
	WarnTimeUnrecognized        WarningCode = "time_unrecognized"
	WarnAccountFormat           WarningCode = "account_format"
	WarnAccountMasked           WarningCode = "account_masked"
	WarnIFSCFormat              WarningCode = "ifsc_format"
	WarnIFSCChecksum            WarningCode = "ifsc_checksum"
	WarnTxnIDFormat             WarningCode = "txn_id_format"
	WarnDirectionUnknown        WarningCode = "direction_unknown"
	WarnClassificationAmbiguous WarningCode = "classification_ambiguous"
	WarnUnclassified            WarningCode = "unclassified"
	WarnLowConfidence           WarningCode = "low_confidence"
	WarnLowOCRConfidence        WarningCode = "low_ocr_confidence"
	WarnDuplicate               WarningCode = "duplicate"
	WarnNoText                  WarningCode = "no_text"
	WarnOCRFailed               WarningCode = "ocr_failed"
	WarnCancelled               WarningCode = "cancelled"
)
