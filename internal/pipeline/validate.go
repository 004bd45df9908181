package pipeline

import (
	"strconv"
	"strings"

	"artwork-backend/pkg/api"
)

const (
	// Operational code for a plain embroidery order.
	EmbroideryCode = 11

	// Codes above this threshold are multi-step operations and must carry a
	// list of the individual operation codes.
	ComplexOperationThreshold = 89
)

const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

// Rejection reasons are fixed strings so they can be counted and reported on
// across runs.
const (
	ReasonNotApproved       = "Status: Not Approved (filtered out)"
	ReasonApproved          = "Status: Approved (filtered out)"
	ReasonOrderFiltered     = "Document Number excluded by filter"
	ReasonInvalidSku        = "Invalid Logo SKU"
	ReasonMissingOpCode     = "Missing or empty Operational Code"
	ReasonInvalidOpCode     = "Invalid Operational Code format"
	ReasonEmptyOpCodeList   = "No valid List of Operation Codes found for Operational Code > 89"
	ReasonOpCodeNotEligible = "Operational Code is not 11 (Embroidery) or > 89"
	ReasonLogoNotFound      = "Logo not found in database"
	ReasonImagesNotFound    = "Logo images not found"
	ReasonRenderFailed      = "PDF generation failed"
)

type RunOptions struct {
	// Exact Document Number to process, empty processes all orders.
	OrderFilter string

	// One of the api.ApprovalFilter values. Empty behaves as both.
	ApprovalFilter string
}

// Verdict is the per-row outcome of validation and resolution. A row that
// fails any check keeps its first rejection reason.
type Verdict struct {
	Row Row

	Order  string
	Sku    string
	OpCode int

	Valid  bool
	Reason string
}

func (v *Verdict) reject(reason string) {
	v.Valid = false
	v.Reason = reason
}

// ValidateRow applies the order filter, the approval filter, and the SKU and
// operational code rules. Reference resolution happens separately, after
// which CheckOperation applies the multi-step code rules.
func ValidateRow(row Row, opts RunOptions) *Verdict {
	v := &Verdict{
		Row:   row,
		Order: row.Get(ColDocumentNumber),
		Sku:   CleanSku(row.Get(ColLogo)),
		Valid: true,
	}

	if opts.OrderFilter != "" && v.Order != strings.TrimSpace(opts.OrderFilter) {
		v.reject(ReasonOrderFiltered)
		return v
	}

	notApproved := strings.EqualFold(row.Get(ColDueDateStatus), "NOT APPROVED")
	switch opts.ApprovalFilter {
	case api.ApprovalFilterApprovedOnly:
		if notApproved {
			v.reject(ReasonNotApproved)
			return v
		}
	case api.ApprovalFilterNotApprovedOnly:
		if !notApproved {
			v.reject(ReasonApproved)
			return v
		}
	}

	if v.Sku == "" || v.Sku == "0000" {
		v.reject(ReasonInvalidSku)
		return v
	}

	opCodeRaw := row.Get(ColOperationalCode)
	if opCodeRaw == "" {
		v.reject(ReasonMissingOpCode)
		return v
	}

	opCode, err := parseCode(opCodeRaw)
	if err != nil {
		v.reject(ReasonInvalidOpCode)
		return v
	}
	if opCode <= 0 {
		v.reject(ReasonInvalidOpCode)
		return v
	}
	v.OpCode = opCode

	return v
}

// CheckOperation applies the operational code eligibility rules: the code is
// either the embroidery code, or a multi-step code above the threshold with
// at least one parseable code in the operation code list.
func CheckOperation(opCode int, codeList string) (bool, string) {
	if opCode == EmbroideryCode {
		return true, ""
	}

	if opCode > ComplexOperationThreshold {
		if len(ParseCodeList(codeList)) == 0 {
			return false, ReasonEmptyOpCodeList
		}
		return true, ""
	}

	return false, ReasonOpCodeNotEligible
}

// ParseCodeList parses a comma-separated list of operation codes, skipping
// entries that are not numeric.
func ParseCodeList(raw string) []int {
	var codes []int
	for _, part := range strings.Split(raw, ",") {
		code, err := parseCode(part)
		if err != nil || code <= 0 {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}

func parseCode(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")

	code, err := strconv.Atoi(s)
	if err != nil {
		// Exports sometimes render codes as floats ("95.0" survives the
		// suffix trim only for exactly ".0").
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, err
		}
		return int(f), nil
	}
	return code, nil
}
