package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateZeroDocuments(t *testing.T) {
	got := AggregateExtractedData(nil)
	require.NotNil(t, got.RegisterMaps)
	require.NotNil(t, got.TimingConstraints)
	require.NotNil(t, got.Pinouts)
	require.NotNil(t, got.ElectricalSpecs)
	require.NotNil(t, got.Configurations)
	assert.True(t, got.IsEmpty())
	assert.Empty(t, got.Summary)
}

func TestAggregateConcatenatesInDocumentOrder(t *testing.T) {
	docs := []HardwareDocument{
		{ID: "a", ExtractedData: &ExtractedData{
			RegisterMaps: []RegisterMap{{Name: "CR1"}},
			Summary:      "first",
		}},
		{ID: "skipped"},
		{ID: "b", ExtractedData: &ExtractedData{
			RegisterMaps: []RegisterMap{{Name: "CR1"}},
			Pinouts:      []Pinout{{PinNumber: "7", Name: "PA0"}},
		}},
	}
	got := AggregateExtractedData(docs)
	require.Len(t, got.RegisterMaps, 2)
	assert.Equal(t, "CR1", got.RegisterMaps[0].Name)
	assert.Equal(t, "CR1", got.RegisterMaps[1].Name)
	assert.Len(t, got.Pinouts, 1)
	assert.Empty(t, got.Summary)
}
