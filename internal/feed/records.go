package feed

import "encoding/json"

// PoolRecord is one entry of the yields feed (yields.llama.fi/pools).
// Numeric metrics are pointers so an absent field stays distinguishable
// from zero all the way into the database.
type PoolRecord struct {
	Pool    string `json:"pool"`
	Chain   string `json:"chain"`
	Project string `json:"project"`

	Symbol           *string  `json:"symbol"`
	Stablecoin       *bool    `json:"stablecoin"`
	ILRisk           *string  `json:"ilRisk"`
	Exposure         *string  `json:"exposure"`
	RewardTokens     []string `json:"rewardTokens"`
	UnderlyingTokens []string `json:"underlyingTokens"`

	// PoolMeta is kept verbatim; upstream sends a string today but has
	// changed the shape of loosely-typed fields before.
	PoolMeta json.RawMessage `json:"poolMeta"`

	TVLUsd           *float64 `json:"tvlUsd"`
	ApyBase          *float64 `json:"apyBase"`
	ApyReward        *float64 `json:"apyReward"`
	Apy              *float64 `json:"apy"`
	ApyPct1D         *float64 `json:"apyPct1D"`
	ApyPct7D         *float64 `json:"apyPct7D"`
	ApyPct30D        *float64 `json:"apyPct30D"`
	IL7D             *float64 `json:"il7d"`
	ApyBase7D        *float64 `json:"apyBase7d"`
	ApyMean30D       *float64 `json:"apyMean30d"`
	VolumeUsd1D      *float64 `json:"volumeUsd1d"`
	VolumeUsd7D      *float64 `json:"volumeUsd7d"`
	ApyBaseInception *float64 `json:"apyBaseInception"`
	Mu               *float64 `json:"mu"`
	Sigma            *float64 `json:"sigma"`
	Count            *int64   `json:"count"`
	Outlier          *bool    `json:"outlier"`

	Predictions json.RawMessage `json:"predictions"`
}

// PredictionFields are the scalar columns projected out of the predictions
// object; the object itself is also stored verbatim.
type PredictionFields struct {
	PredictedClass       *string  `json:"predictedClass"`
	PredictedProbability *float64 `json:"predictedProbability"`
	BinnedConfidence     *int64   `json:"binnedConfidence"`
}

// PredictionFields decodes the predictions object. An absent or unparseable
// object yields zero-valued (all-nil) fields.
func (r *PoolRecord) PredictionFields() PredictionFields {
	var f PredictionFields
	if len(r.Predictions) == 0 {
		return f
	}
	if err := json.Unmarshal(r.Predictions, &f); err != nil {
		return PredictionFields{}
	}
	return f
}

// ProtocolRecord is one entry of the protocols feed (api.llama.fi/protocols).
type ProtocolRecord struct {
	Name string  `json:"name"`
	Slug *string `json:"slug"`

	Symbol      *string  `json:"symbol"`
	Chain       *string  `json:"chain"`
	Chains      []string `json:"chains"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Twitter     *string  `json:"twitter"`
	ListedAt    *int64   `json:"listedAt"` // unix seconds

	TVL          *float64 `json:"tvl"`
	TVLPrevDay   *float64 `json:"tvlPrevDay"`
	TVLPrevWeek  *float64 `json:"tvlPrevWeek"`
	TVLPrevMonth *float64 `json:"tvlPrevMonth"`
	Mcap         *float64 `json:"mcap"`
	FDV          *float64 `json:"fdv"`
	Change1h     *float64 `json:"change_1h"`
	Change1d     *float64 `json:"change_1d"`
	Change7d     *float64 `json:"change_7d"`

	ChainTVLs json.RawMessage `json:"chainTvls"`
	Tokens    json.RawMessage `json:"tokens"`

	Audits          *string  `json:"audits"`
	AuditNote       *string  `json:"audit_note"`
	ForkedFrom      []string `json:"forkedFrom"`
	Oracles         []string `json:"oracles"`
	ParentProtocols []string `json:"parentProtocols"`
	OtherChains     []string `json:"otherChains"`
}
