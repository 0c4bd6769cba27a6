package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devadigapratham/spoolkeeper/inventory"
)

func dp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestMetersToGrams(t *testing.T) {
	assert.Equal(t, "2.98", MetersToGrams(decimal.NewFromInt(1)).String())
	assert.Equal(t, "29.83", MetersToGrams(decimal.NewFromInt(10)).String())
	assert.True(t, MetersToGrams(decimal.Zero).IsZero())
}

func TestMetadataUsageRequest_Grams(t *testing.T) {
	r := MetadataUsageRequest{MaterialType: "PLA", UsedFilamentG: dp("12.5"), UsedFilamentM: dp("100")}
	require.NoError(t, r.Validate())
	assert.Equal(t, "12.5", r.Grams().String())

	r = MetadataUsageRequest{MaterialType: "PLA", UsedFilamentM: dp("10")}
	require.NoError(t, r.Validate())
	assert.Equal(t, "29.83", r.Grams().String())
}

func TestMetadataUsageRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  MetadataUsageRequest
	}{
		{"no amount", MetadataUsageRequest{MaterialType: "PLA"}},
		{"no filament hint", MetadataUsageRequest{UsedFilamentG: dp("3")}},
		{"zero grams", MetadataUsageRequest{MaterialType: "PLA", UsedFilamentG: dp("0")}},
		{"negative meters", MetadataUsageRequest{MaterialType: "PLA", UsedFilamentM: dp("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.Error(t, err)
			assert.True(t, inventory.IsInvalidInput(err))
		})
	}
}

func TestCreateFilamentRequest_Validate(t *testing.T) {
	ok := CreateFilamentRequest{Material: "petg", Spools: 2, SpoolWeight: dp("1000"), EmptyWeight: dp("200")}
	assert.NoError(t, ok.Validate())

	bad := CreateFilamentRequest{Material: "wood"}
	assert.True(t, inventory.IsInvalidInput(bad.Validate()))

	missingWeight := CreateFilamentRequest{Material: "PLA", Spools: 1}
	assert.True(t, inventory.IsInvalidInput(missingWeight.Validate()))

	negativeTare := CreateFilamentRequest{Material: "PLA", EmptyWeight: dp("-1")}
	assert.True(t, inventory.IsInvalidInput(negativeTare.Validate()))
}

func TestUpdateConsumptionRequest_Patch(t *testing.T) {
	kind := "failed"
	r := UpdateConsumptionRequest{AmountGrams: dp("4.2"), Kind: &kind}
	require.NoError(t, r.Validate())

	p := r.Patch()
	require.NotNil(t, p.Kind)
	assert.Equal(t, inventory.KindFailed, *p.Kind)
	assert.Equal(t, "4.2", p.AmountGrams.String())
	assert.Nil(t, p.FilamentID)

	empty := ""
	r = UpdateConsumptionRequest{FilamentID: &empty}
	assert.True(t, inventory.IsInvalidInput(r.Validate()))
}

func TestCommand_RoundTrip(t *testing.T) {
	archived := true
	cmd := &Command{
		Type:       ArchiveFilament,
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		FilamentID: "fil-1",
		Archived:   &archived,
		NewEntry:   &inventory.NewEntry{ID: "e1", FilamentID: "fil-1", AmountGrams: decimal.RequireFromString("12.34")},
	}
	data, err := cmd.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalCommand(data)
	require.NoError(t, err)
	assert.Equal(t, ArchiveFilament, got.Type)
	assert.True(t, cmd.Timestamp.Equal(got.Timestamp))
	require.NotNil(t, got.Archived)
	assert.True(t, *got.Archived)
	assert.True(t, got.NewEntry.AmountGrams.Equal(decimal.RequireFromString("12.34")))
}

func TestIsValidFilamentType(t *testing.T) {
	assert.True(t, IsValidFilamentType("pla"))
	assert.True(t, IsValidFilamentType(" PETG "))
	assert.False(t, IsValidFilamentType("unobtainium"))
	assert.True(t, IsValidConsumptionKind(""))
	assert.True(t, IsValidConsumptionKind("test"))
	assert.False(t, IsValidConsumptionKind("partial"))
}

func TestRequests_RejectExcessiveScale(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"tiny grams", func() error {
			r := CreateConsumptionRequest{FilamentID: "f", AmountGrams: decimal.RequireFromString("1e-20000000")}
			return r.Validate()
		}},
		{"huge grams", func() error {
			r := CreateConsumptionRequest{FilamentID: "f", AmountGrams: decimal.RequireFromString("1e20000000")}
			return r.Validate()
		}},
		{"four decimals", func() error {
			r := CreateSpoolRequest{StartingWeight: decimal.RequireFromString("1000.0001")}
			return r.Validate()
		}},
		{"tare too fine", func() error {
			r := RestockRequest{Quantity: 1, WeightPerSpool: decimal.NewFromInt(1000), EmptyWeight: dp("0.00001")}
			return r.Validate()
		}},
		{"meters too large", func() error {
			r := MetadataUsageRequest{MaterialType: "PLA", UsedFilamentM: dp("2000000")}
			return r.Validate()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			require.Error(t, err)
			assert.True(t, inventory.IsInvalidInput(err))
		})
	}

	ok := CreateSpoolRequest{StartingWeight: decimal.RequireFromString("1000.2500")}
	assert.NoError(t, ok.Validate(), "trailing zeros do not count as precision")
}

func TestUpdateConsumptionRequest_ClearMeters(t *testing.T) {
	r := UpdateConsumptionRequest{ClearAmountMeters: true}
	require.NoError(t, r.Validate())
	assert.True(t, r.Patch().ClearAmountMeters)

	r = UpdateConsumptionRequest{ClearAmountMeters: true, AmountMeters: dp("3")}
	assert.True(t, inventory.IsInvalidInput(r.Validate()))
}
