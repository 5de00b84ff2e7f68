package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFundingStage_EarlyVocabulary(t *testing.T) {
	for _, raw := range []string{
		"seed", "pre_seed", "angel", "grant", "convertible_note", "series_a",
	} {
		assert.Equal(t, StageEarly, ClassifyFundingStage(raw), raw)
	}
}

func TestClassifyFundingStage_LateVocabulary(t *testing.T) {
	for _, raw := range []string{
		"series_b", "series_c", "series_d", "series_e", "series_f",
		"series_g", "series_h", "series_i", "series_j",
		"private_equity", "post_ipo_equity", "post_ipo_debt",
		"post_ipo_secondary", "debt_financing", "secondary_market",
	} {
		assert.Equal(t, StageLate, ClassifyFundingStage(raw), raw)
	}
}

func TestClassifyFundingStage_Normalization(t *testing.T) {
	assert.Equal(t, StageEarly, ClassifyFundingStage("Series A"))
	assert.Equal(t, StageEarly, ClassifyFundingStage("  Pre-Seed "))
	assert.Equal(t, StageLate, ClassifyFundingStage("Series-C"))
	assert.Equal(t, StageLate, ClassifyFundingStage("POST IPO EQUITY"))
}

func TestClassifyFundingStage_Unknown(t *testing.T) {
	for _, raw := range []string{
		"", "undisclosed", "series_unknown", "equity_crowdfunding",
		"product_crowdfunding", "corporate_round", "initial_coin_offering",
	} {
		assert.Equal(t, StageUnknown, ClassifyFundingStage(raw), raw)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "truckco", NormalizeName("  TruckCo "))
	assert.Equal(t, NormalizeName("ACME Robotics"), NormalizeName("acme robotics"))
}

func TestValidName(t *testing.T) {
	assert.False(t, ValidName(""))
	assert.False(t, ValidName(" x "))
	assert.True(t, ValidName("xy"))
	assert.True(t, ValidName("TruckCo"))
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ValidName(string(long)))
	assert.True(t, ValidName(string(long[:99])))
}
