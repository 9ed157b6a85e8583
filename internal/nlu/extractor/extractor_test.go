package extractor

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seu-repo/botcore/internal/domain"
)

func fixedClock() time.Time {
	return time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)
}

func TestExtract_RegexUsesFirstGroup(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{
		{Name: "order_id", Kind: domain.EntityKindRegex, Pattern: `ORD(\d{5})`},
		{Name: "ticket", Kind: domain.EntityKindRegex, Pattern: `T-\d+`},
	})
	require.NoError(t, err)

	got := ex.Extract("order ORD12345 and T-77")

	want := domain.Entities{
		"order_id": {{Value: "12345", Raw: "ORD12345", Span: domain.Span{Start: 6, End: 14}, Source: domain.EntityKindRegex}},
		"ticket":   {{Value: "T-77", Raw: "T-77", Span: domain.Span{Start: 19, End: 23}, Source: domain.EntityKindRegex}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_CustomReturnsCanonical(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{{
		Name: "city",
		Kind: domain.EntityKindCustom,
		Values: []domain.EntityValue{
			{Value: "New York", Synonyms: []string{"NYC", "big apple"}},
			{Value: "Paris"},
		},
	}})
	require.NoError(t, err)

	got := ex.Extract("fly from nyc to PARIS via the Big Apple")

	require.Len(t, got["city"], 3)
	assert.Equal(t, "New York", got["city"][0].Value)
	assert.Equal(t, "nyc", got["city"][0].Raw)
	assert.Equal(t, "Paris", got["city"][1].Value)
	assert.Equal(t, "New York", got["city"][2].Value)
}

func TestExtract_SystemDates(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{
		{Name: "when", Kind: domain.EntityKindSystem, System: domain.SystemDate},
	}, WithClock(fixedClock))
	require.NoError(t, err)

	got := ex.Extract("tomorrow or 2024-04-01 or 15/05/2024, not 2024-13-45")

	var values []string
	for _, m := range got["when"] {
		values = append(values, m.Value)
	}
	assert.Equal(t, []string{"2024-03-11", "2024-04-01", "2024-05-15"}, values)
}

func TestExtract_SystemRecognizers(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{
		{Name: "email", Kind: domain.EntityKindSystem, System: domain.SystemEmail},
		{Name: "url", Kind: domain.EntityKindSystem, System: domain.SystemURL},
		{Name: "wait", Kind: domain.EntityKindSystem, System: domain.SystemDuration},
	})
	require.NoError(t, err)

	got := ex.Extract("Mail Bob@Example.com, see https://example.com/x. Wait 2 hours")

	v, ok := got.First("email")
	require.True(t, ok)
	assert.Equal(t, "bob@example.com", v)

	v, ok = got.First("url")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/x", v)

	v, ok = got.First("wait")
	require.True(t, ok)
	assert.Equal(t, "2h0m0s", v)
}

func TestExtract_DurationSkipsOverflowingCounts(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{
		{Name: "wait", Kind: domain.EntityKindSystem, System: domain.SystemDuration},
	})
	require.NoError(t, err)

	got := ex.Extract("wait 99999999 weeks or 3 days")

	require.Len(t, got["wait"], 1)
	assert.Equal(t, "72h0m0s", got["wait"][0].Value)
	assert.Equal(t, "3 days", got["wait"][0].Raw)
}

func TestExtract_OverlapLongerSpanWins(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{
		{Name: "amount", Kind: domain.EntityKindSystem, System: domain.SystemNumber},
		{Name: "when", Kind: domain.EntityKindSystem, System: domain.SystemDate},
	})
	require.NoError(t, err)

	got := ex.Extract("on 2024-04-01 buy 3")

	require.Len(t, got["when"], 1)
	require.Len(t, got["amount"], 1)
	assert.Equal(t, "3", got["amount"][0].Value)
}

func TestExtract_OverlapTieSystemBeatsCustomBeatsRegex(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{
		{Name: "code", Kind: domain.EntityKindRegex, Pattern: `\d{3}`},
		{Name: "lucky", Kind: domain.EntityKindCustom, Values: []domain.EntityValue{{Value: "seven", Synonyms: []string{"777"}}}},
		{Name: "n", Kind: domain.EntityKindSystem, System: domain.SystemNumber},
	})
	require.NoError(t, err)

	got := ex.Extract("pick 777")
	assert.Len(t, got["n"], 1)
	assert.Empty(t, got["lucky"])
	assert.Empty(t, got["code"])

	ex, err = New([]domain.EntityDefinition{
		{Name: "code", Kind: domain.EntityKindRegex, Pattern: `\d{3}`},
		{Name: "lucky", Kind: domain.EntityKindCustom, Values: []domain.EntityValue{{Value: "seven", Synonyms: []string{"777"}}}},
	})
	require.NoError(t, err)

	got = ex.Extract("pick 777")
	v, _ := got.First("lucky")
	assert.Equal(t, "seven", v)
	assert.Empty(t, got["code"])
}

func TestExtract_NoMatchesIsEmpty(t *testing.T) {
	ex, err := New([]domain.EntityDefinition{
		{Name: "email", Kind: domain.EntityKindSystem, System: domain.SystemEmail},
	})
	require.NoError(t, err)

	assert.Empty(t, ex.Extract("nothing here"))
}

func TestNew_RejectsInvalidDefinitions(t *testing.T) {
	_, err := New([]domain.EntityDefinition{
		{Name: "x", Kind: domain.EntityKindRegex, Pattern: `a`},
		{Name: "x", Kind: domain.EntityKindRegex, Pattern: `b`},
	})
	assert.True(t, errors.Is(err, domain.ErrDuplicateEntity))

	_, err = New([]domain.EntityDefinition{{Name: "bad", Kind: domain.EntityKindRegex, Pattern: `(`}})
	assert.Error(t, err)

	_, err = New([]domain.EntityDefinition{{Name: "s", Kind: domain.EntityKindSystem, System: "zodiac"}})
	assert.Error(t, err)
}
