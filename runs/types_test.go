package runs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ID(t *testing.T) {
	tests := []struct {
		name string
		run  Run
		want string
	}{
		{name: "present", run: Run{"guid": "abc"}, want: "abc"},
		{name: "missing", run: Run{"verdict": "AC"}, want: ""},
		{name: "wrong type", run: Run{"guid": 7}, want: ""},
		{name: "nil run", run: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.run.ID())
		})
	}
}

func TestParseFilterKey(t *testing.T) {
	for _, k := range FilterKeys() {
		got, err := ParseFilterKey(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseFilterKey("Verdict")
	assert.ErrorIs(t, err, ErrUnknownFilterKey)
	assert.EqualError(t, err, `unknown filter key "Verdict"`)
}

func TestFilterKeys_ReturnsCopy(t *testing.T) {
	keys := FilterKeys()
	require.Len(t, keys, 9)
	keys[0] = "mutated"

	assert.Equal(t, FilterVerdict, FilterKeys()[0])
}

func TestFilters_AcceptsDecodedJSON(t *testing.T) {
	var partial Filters
	require.NoError(t, json.Unmarshal([]byte(`{"verdict":"AC","rowcount":100,"offset":0}`), &partial))

	s := New("all")
	require.NoError(t, s.ApplyFilter(partial))
	assert.Equal(t, Filters{FilterVerdict: "AC", FilterRowcount: float64(100), FilterOffset: float64(0)}, s.Filters())
}

func TestSnapshot_JSON(t *testing.T) {
	s := New("mine")
	require.NoError(t, s.UpsertRun(Run{"guid": "g1", "verdict": "AC"}))
	s.SetTotalRuns(1)

	data, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"name": "mine",
		"runs": [{"guid": "g1", "verdict": "AC"}],
		"index": {"g1": 0},
		"filters": null,
		"pagination": {"total_runs": 1, "offset": 0, "loading": false, "end_of_results": false}
	}`, string(data))
}
