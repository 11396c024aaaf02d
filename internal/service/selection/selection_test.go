package selection

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"filter-selector/internal/storage"
)

func n(v float64) storage.Number { return storage.NewNumber(v) }

func rng(min, max float64) storage.Range {
	return storage.Range{Min: n(min), Max: n(max)}
}

func ptr(v float64) *float64 { return &v }

func separator(model string, min, max float64) storage.CatalogRecord {
	return storage.CatalogRecord{
		FilterType:      storage.Separator,
		Model:           model,
		ElectricalUsage: n(1000),
		RecircRate:      rng(min, max),
	}
}

func TestSelect_SeparatorScenario(t *testing.T) {
	catalog := []storage.CatalogRecord{{
		FilterType:      storage.Separator,
		Model:           "SEP-300",
		RecircRate:      rng(100, 500),
		ElectricalUsage: n(1000),
	}}

	res, err := Select(catalog, OpenByRecircRate(300, 0.12))
	require.NoError(t, err)

	sep := res.For(storage.Separator)
	require.True(t, sep.Matched)
	assert.Equal(t, "SEP-300", sep.Record.Model)
	assert.InDelta(t, 120.0, sep.OperatingCost, 1e-9)
	assert.Equal(t, "120.00", sep.OperatingCostDisplay)
	assert.Equal(t, "Separator - SEP-300", sep.DisplayName)

	assert.False(t, res.For(storage.VAF).Matched)
	assert.False(t, res.For(storage.Vortisand).Matched)
	assert.True(t, res.AnyMatch)
	assert.Equal(t, BasisRecircRate, res.Basis)
}

func TestSelect_EmptyCatalog(t *testing.T) {
	queries := []Query{
		OpenByRecircRate(10, 0.1),
		OpenByTonnage(10, 0.1),
		ClosedByVolume(10, 0),
	}

	for _, q := range queries {
		res, err := Select(nil, q)
		require.NoError(t, err)
		require.Len(t, res.Selections, 3)
		for _, s := range res.Selections {
			assert.False(t, s.Matched)
			assert.Nil(t, s.Record)
		}
		assert.False(t, res.AnyMatch)
	}
}

func TestSelect_CategoriesInFixedOrder(t *testing.T) {
	res, err := Select(nil, OpenByRecircRate(1, 0))
	require.NoError(t, err)

	var got []storage.FilterType
	for _, s := range res.Selections {
		got = append(got, s.Category)
	}
	assert.Equal(t, []storage.FilterType{storage.Separator, storage.VAF, storage.Vortisand}, got)
}

func TestSelect_InclusiveBounds(t *testing.T) {
	catalog := []storage.CatalogRecord{separator("S", 100, 500)}

	for _, rate := range []float64{100, 500} {
		res, err := Select(catalog, OpenByRecircRate(rate, 1))
		require.NoError(t, err)
		assert.True(t, res.For(storage.Separator).Matched, "rate %v", rate)
	}

	for _, rate := range []float64{99.99, 500.01} {
		res, err := Select(catalog, OpenByRecircRate(rate, 1))
		require.NoError(t, err)
		assert.False(t, res.For(storage.Separator).Matched, "rate %v", rate)
	}
}

func TestSelect_FirstMatchWinsAndOrderMatters(t *testing.T) {
	a := separator("A", 0, 1000)
	b := separator("B", 200, 400)

	res, err := Select([]storage.CatalogRecord{a, b}, OpenByRecircRate(300, 1))
	require.NoError(t, err)
	assert.Equal(t, "A", res.For(storage.Separator).Record.Model)

	res, err = Select([]storage.CatalogRecord{b, a}, OpenByRecircRate(300, 1))
	require.NoError(t, err)
	assert.Equal(t, "B", res.For(storage.Separator).Record.Model)
}

func TestSelect_EachCategoryResolvedIndependently(t *testing.T) {
	catalog := []storage.CatalogRecord{
		{FilterType: storage.VAF, Model: "VAF-1", Tonnage: rng(10, 100)},
		{FilterType: storage.Separator, Model: "SEP-1", Tonnage: rng(10, 100)},
		{FilterType: storage.VAF, Model: "VAF-2", Tonnage: rng(10, 100)},
		{FilterType: storage.Vortisand, Model: "VS-1", Tonnage: rng(200, 300)},
	}

	res, err := Select(catalog, OpenByTonnage(50, 0.1))
	require.NoError(t, err)

	assert.Equal(t, "SEP-1", res.For(storage.Separator).Record.Model)
	assert.Equal(t, "VAF-1", res.For(storage.VAF).Record.Model)
	assert.False(t, res.For(storage.Vortisand).Matched)
}

func TestSelect_UnrecognizedTypeDoesNotTakeASlot(t *testing.T) {
	catalog := []storage.CatalogRecord{
		{FilterType: "Strainer", Model: "ST", LoopVolume: rng(1, 100)},
		{FilterType: "separator", Model: "lowercase", LoopVolume: rng(1, 100)},
		{FilterType: storage.Separator, Model: "SEP", LoopVolume: rng(1, 100)},
	}

	res, err := Select(catalog, ClosedByVolume(50, 0.1))
	require.NoError(t, err)
	assert.Equal(t, "SEP", res.For(storage.Separator).Record.Model)
}

func TestSelect_MissingBoundsNeverMatch(t *testing.T) {
	catalog := []storage.CatalogRecord{
		{FilterType: storage.Separator, Model: "no-max", RecircRate: storage.Range{Min: n(0)}},
		{FilterType: storage.Separator, Model: "no-min", RecircRate: storage.Range{Max: n(1000)}},
		{FilterType: storage.Separator, Model: "none"},
	}

	res, err := Select(catalog, OpenByRecircRate(10, 1))
	require.NoError(t, err)
	assert.False(t, res.For(storage.Separator).Matched)
}

func TestSelect_BasisUsesOnlyItsRange(t *testing.T) {
	rec := storage.CatalogRecord{
		FilterType: storage.Vortisand,
		Model:      "VS",
		RecircRate: rng(100, 200),
		Tonnage:    rng(1, 5),
		LoopVolume: rng(1000, 2000),
	}
	catalog := []storage.CatalogRecord{rec}

	res, _ := Select(catalog, OpenByTonnage(150, 1))
	assert.False(t, res.For(storage.Vortisand).Matched, "tonnage must not be matched against the recirc range")

	res, _ = Select(catalog, ClosedByVolume(150, 1))
	assert.False(t, res.For(storage.Vortisand).Matched, "volume must not be matched against the recirc range")

	res, _ = Select(catalog, ClosedByVolume(1500, 1))
	assert.True(t, res.For(storage.Vortisand).Matched)
}

func TestSelect_BothOpenInputsPreferRecircRate(t *testing.T) {
	catalog := []storage.CatalogRecord{
		{FilterType: storage.Separator, Model: "by-tonnage", Tonnage: rng(1, 1000)},
		{FilterType: storage.Separator, Model: "by-recirc", RecircRate: rng(1, 1000)},
	}

	q := Query{SystemType: Open, RecircRate: ptr(50), Tonnage: ptr(50), ElectricalUnitCost: 0.1}
	res, err := Select(catalog, q)
	require.NoError(t, err)
	assert.Equal(t, BasisRecircRate, res.Basis)
	assert.Equal(t, "by-recirc", res.For(storage.Separator).Record.Model)
}

func TestSelect_InvalidQueryReturnsNoPartialResult(t *testing.T) {
	catalog := []storage.CatalogRecord{separator("S", 0, 1000)}

	res, err := Select(catalog, ClosedByVolume(-5, 0.1))

	var invalid *InvalidQueryError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, FieldSystemVolume, invalid.Field)
	assert.Empty(t, res.Selections)
}

func TestSelect_Idempotent(t *testing.T) {
	catalog := []storage.CatalogRecord{
		separator("A", 0, 100),
		{FilterType: storage.VAF, Model: "V", RecircRate: rng(0, 100), ElectricalUsage: n(333.333)},
	}
	q := OpenByRecircRate(50, 0.17)

	first, err := Select(catalog, q)
	require.NoError(t, err)
	second, err := Select(catalog, q)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSelect_DoesNotAliasCatalog(t *testing.T) {
	catalog := []storage.CatalogRecord{{
		FilterType: storage.Separator,
		Model:      "S",
		RecircRate: rng(0, 10),
		Documents:  []storage.DocRef{{Link: "http://x/a.pdf", Description: "A"}},
	}}

	res, err := Select(catalog, OpenByRecircRate(5, 1))
	require.NoError(t, err)

	sel := res.For(storage.Separator)
	sel.Record.Model = "mutated"
	sel.Documents[0].Link = "mutated"

	assert.Equal(t, "S", catalog[0].Model)
	assert.Equal(t, "http://x/a.pdf", catalog[0].Documents[0].Link)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		query     Query
		wantField string
		wantBasis Basis
	}{
		{name: "negative cost", query: OpenByRecircRate(10, -0.01), wantField: FieldElectrical},
		{name: "NaN cost", query: OpenByRecircRate(10, math.NaN()), wantField: FieldElectrical},
		{name: "infinite cost", query: ClosedByVolume(10, math.Inf(1)), wantField: FieldElectrical},
		{name: "zero cost ok", query: OpenByRecircRate(10, 0), wantBasis: BasisRecircRate},
		{name: "unknown system", query: Query{SystemType: "half-open", ElectricalUnitCost: 1}, wantField: FieldSystemType},
		{name: "open without sizing", query: Query{SystemType: Open, ElectricalUnitCost: 1}, wantField: FieldOpenSizing},
		{name: "open zero recirc", query: OpenByRecircRate(0, 1), wantField: FieldRecircRate},
		{name: "open negative tonnage", query: OpenByTonnage(-1, 1), wantField: FieldTonnage},
		{name: "open NaN recirc", query: OpenByRecircRate(math.NaN(), 1), wantField: FieldRecircRate},
		{name: "open bad tonnage with good recirc", query: Query{SystemType: Open, RecircRate: ptr(5), Tonnage: ptr(-5), ElectricalUnitCost: 1}, wantField: FieldTonnage},
		{name: "open tonnage", query: OpenByTonnage(12, 1), wantBasis: BasisTonnage},
		{name: "closed negative volume", query: ClosedByVolume(-5, 0.12), wantField: FieldSystemVolume},
		{name: "closed missing volume", query: Query{SystemType: Closed, RecircRate: ptr(5), ElectricalUnitCost: 1}, wantField: FieldSystemVolume},
		{name: "closed ignores open inputs", query: Query{SystemType: Closed, SystemVolume: ptr(9), Tonnage: ptr(-1), ElectricalUnitCost: 1}, wantBasis: BasisSystemVolume},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crit, err := tt.query.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantBasis, crit.Basis)
				return
			}

			var invalid *InvalidQueryError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.wantField, invalid.Field)
			assert.Contains(t, invalid.Error(), tt.wantField)
		})
	}
}

func TestParseSystemType(t *testing.T) {
	assert.Equal(t, Open, ParseSystemType(" Open "))
	assert.Equal(t, Closed, ParseSystemType("CLOSED"))
}

func TestDerive_AbsentUsageCostsZero(t *testing.T) {
	rec := storage.CatalogRecord{Model: "no rating"}

	for _, cost := range []float64{0, 0.12, 1e6} {
		d := Derive(rec, cost)
		assert.Equal(t, 0.0, d.OperatingCost)
		assert.False(t, math.IsNaN(d.OperatingCost))
	}
}

func TestDerive_FullPrecisionAndDisplay(t *testing.T) {
	rec := storage.CatalogRecord{ElectricalUsage: n(1234.5)}

	d := Derive(rec, 0.113)
	assert.InDelta(t, 139.4985, d.OperatingCost, 1e-9)
	assert.Equal(t, "139.50", FormatCost(d.OperatingCost))
	assert.Equal(t, "0.00", FormatCost(0))
}

func TestDerive_DocumentsPassThrough(t *testing.T) {
	docs := []storage.DocRef{
		{Link: "http://x/doc.pdf", Description: "Document 1"},
		{Link: "http://x/b.pdf", Description: "B"},
	}
	d := Derive(storage.CatalogRecord{Documents: docs}, 1)

	assert.Equal(t, docs, d.Documents)
	assert.Nil(t, Derive(storage.CatalogRecord{}, 1).Documents)
}

type MockSnapshots struct {
	mock.Mock
}

func (m *MockSnapshots) Current() *storage.Snapshot {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*storage.Snapshot)
}

func TestService_NotReady(t *testing.T) {
	snaps := new(MockSnapshots)
	snaps.On("Current").Return(nil)

	svc := NewService(snaps)
	_, err := svc.Calculate(context.Background(), OpenByRecircRate(10, 1))

	assert.ErrorIs(t, err, ErrCatalogNotReady)
	var notReady *CatalogNotReadyError
	assert.True(t, errors.As(err, &notReady))
	snaps.AssertExpectations(t)
}

func TestService_CalculateStampsSnapshot(t *testing.T) {
	id := uuid.New()
	snap := &storage.Snapshot{
		ID:      id,
		Version: 7,
		Records: []storage.CatalogRecord{separator("S", 1, 10)},
	}

	snaps := new(MockSnapshots)
	snaps.On("Current").Return(snap)

	svc := NewService(snaps)
	res, err := svc.Calculate(context.Background(), OpenByRecircRate(5, 0.5))
	require.NoError(t, err)

	assert.Equal(t, id.String(), res.SnapshotID)
	assert.Equal(t, uint64(7), res.SnapshotVersion)
	assert.Equal(t, 500.0, res.For(storage.Separator).OperatingCost)

	again, err := svc.Calculate(context.Background(), OpenByRecircRate(5, 0.5))
	require.NoError(t, err)
	assert.Equal(t, res, again)
}

func TestService_InvalidQueryPassesThrough(t *testing.T) {
	store := storage.NewSnapshotStore()
	store.Replace(nil, "src", storage.OriginSource)

	svc := NewService(store)
	_, err := svc.Calculate(context.Background(), OpenByRecircRate(10, -1))

	var invalid *InvalidQueryError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, FieldElectrical, invalid.Field)
}

func TestService_SeesOneSnapshotAcrossReplace(t *testing.T) {
	store := storage.NewSnapshotStore()
	store.Replace([]storage.CatalogRecord{separator("old", 0, 100)}, "src", storage.OriginSource)

	svc := NewService(store)
	before, err := svc.Calculate(context.Background(), OpenByRecircRate(50, 1))
	require.NoError(t, err)

	store.Replace([]storage.CatalogRecord{separator("new", 0, 100)}, "src", storage.OriginSource)
	after, err := svc.Calculate(context.Background(), OpenByRecircRate(50, 1))
	require.NoError(t, err)

	assert.Equal(t, "old", before.For(storage.Separator).Record.Model)
	assert.Equal(t, "new", after.For(storage.Separator).Record.Model)
	assert.Equal(t, before.SnapshotVersion+1, after.SnapshotVersion)
}

func TestService_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(storage.NewSnapshotStore())
	_, err := svc.Calculate(ctx, OpenByRecircRate(1, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
