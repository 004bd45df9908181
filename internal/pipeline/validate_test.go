package pipeline

import (
	"testing"

	"artwork-backend/pkg/api"

	"github.com/stretchr/testify/assert"
)

func orderRow(t *testing.T, values map[string]string) Row {
	defaults := map[string]string{
		ColDocumentNumber:  "SO100",
		ColLogo:            "0950",
		ColOperationalCode: "11",
	}
	for k, v := range values {
		defaults[k] = v
	}
	return makeRow(t, defaults)
}

func TestValidateRowAccepts(t *testing.T) {
	v := ValidateRow(orderRow(t, nil), RunOptions{})
	assert.True(t, v.Valid)
	assert.Equal(t, "SO100", v.Order)
	assert.Equal(t, "0950", v.Sku)
	assert.Equal(t, 11, v.OpCode)
}

func TestValidateRowCleansSku(t *testing.T) {
	v := ValidateRow(orderRow(t, map[string]string{ColLogo: "950.0"}), RunOptions{})
	assert.True(t, v.Valid)
	assert.Equal(t, "0950", v.Sku)
}

func TestValidateRowRejectsMissingSku(t *testing.T) {
	for _, sku := range []string{"", "0000", "0", "nan"} {
		v := ValidateRow(orderRow(t, map[string]string{ColLogo: sku}), RunOptions{})
		assert.False(t, v.Valid, "sku: %q", sku)
		assert.Equal(t, ReasonInvalidSku, v.Reason)
	}
}

func TestValidateRowOperationalCode(t *testing.T) {
	tests := []struct {
		code   string
		valid  bool
		reason string
	}{
		{"11", true, ""},
		{"11.0", true, ""},
		{"95", true, ""}, // eligibility of >89 codes is checked later
		{"", false, ReasonMissingOpCode},
		{"abc", false, ReasonInvalidOpCode},
		{"0", false, ReasonInvalidOpCode},
		{"-3", false, ReasonInvalidOpCode},
	}

	for _, test := range tests {
		v := ValidateRow(orderRow(t, map[string]string{ColOperationalCode: test.code}), RunOptions{})
		assert.Equal(t, test.valid, v.Valid, "code: %q", test.code)
		if !test.valid {
			assert.Equal(t, test.reason, v.Reason, "code: %q", test.code)
		}
	}
}

func TestValidateRowApprovalFilter(t *testing.T) {
	notApproved := map[string]string{ColDueDateStatus: "NOT APPROVED"}
	approved := map[string]string{ColDueDateStatus: "Approved"}

	v := ValidateRow(orderRow(t, notApproved), RunOptions{ApprovalFilter: api.ApprovalFilterApprovedOnly})
	assert.False(t, v.Valid)
	assert.Equal(t, ReasonNotApproved, v.Reason)

	v = ValidateRow(orderRow(t, approved), RunOptions{ApprovalFilter: api.ApprovalFilterApprovedOnly})
	assert.True(t, v.Valid)

	v = ValidateRow(orderRow(t, approved), RunOptions{ApprovalFilter: api.ApprovalFilterNotApprovedOnly})
	assert.False(t, v.Valid)
	assert.Equal(t, ReasonApproved, v.Reason)

	v = ValidateRow(orderRow(t, notApproved), RunOptions{ApprovalFilter: api.ApprovalFilterNotApprovedOnly})
	assert.True(t, v.Valid)

	// Case-insensitive, trimmed match.
	v = ValidateRow(orderRow(t, map[string]string{ColDueDateStatus: "  not approved  "}), RunOptions{ApprovalFilter: api.ApprovalFilterApprovedOnly})
	assert.False(t, v.Valid)

	// Both and empty pass everything through.
	for _, filter := range []string{api.ApprovalFilterBoth, ""} {
		v = ValidateRow(orderRow(t, notApproved), RunOptions{ApprovalFilter: filter})
		assert.True(t, v.Valid, "filter: %q", filter)
	}
}

func TestValidateRowOrderFilter(t *testing.T) {
	v := ValidateRow(orderRow(t, nil), RunOptions{OrderFilter: "SO100"})
	assert.True(t, v.Valid)

	v = ValidateRow(orderRow(t, nil), RunOptions{OrderFilter: "SO999"})
	assert.False(t, v.Valid)
	assert.Equal(t, ReasonOrderFiltered, v.Reason)
}

func TestValidateRowFiltersAreIndependent(t *testing.T) {
	// A row matching the order filter must still pass the approval filter.
	v := ValidateRow(orderRow(t, map[string]string{ColDueDateStatus: "NOT APPROVED"}), RunOptions{
		OrderFilter:    "SO100",
		ApprovalFilter: api.ApprovalFilterApprovedOnly,
	})
	assert.False(t, v.Valid)
	assert.Equal(t, ReasonNotApproved, v.Reason)
}

func TestCheckOperation(t *testing.T) {
	ok, _ := CheckOperation(EmbroideryCode, "")
	assert.True(t, ok)

	ok, _ = CheckOperation(95, "11,60,75")
	assert.True(t, ok)

	ok, reason := CheckOperation(95, "")
	assert.False(t, ok)
	assert.Equal(t, ReasonEmptyOpCodeList, reason)

	ok, reason = CheckOperation(95, "abc, ,")
	assert.False(t, ok)
	assert.Equal(t, ReasonEmptyOpCodeList, reason)

	ok, reason = CheckOperation(20, "11,60")
	assert.False(t, ok)
	assert.Equal(t, ReasonOpCodeNotEligible, reason)

	ok, reason = CheckOperation(89, "11,60")
	assert.False(t, ok)
	assert.Equal(t, ReasonOpCodeNotEligible, reason)
}

func TestParseCodeList(t *testing.T) {
	assert.Equal(t, []int{11, 60, 75}, ParseCodeList("11, 60,75"))
	assert.Equal(t, []int{11}, ParseCodeList("11, abc, -2"))
	assert.Empty(t, ParseCodeList(""))
	assert.Equal(t, []int{11, 60}, ParseCodeList("11.0,60.0"))
}
