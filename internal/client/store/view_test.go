package store

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []org) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}

func TestSetFilter_InvalidatesEveryCachedQuery(t *testing.T) {
	svc := newFakeService(newOrg("1", "Acme"), newOrg("2", "Bistro"))
	s := newTestStore(svc, newClock())
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = s.FetchList(ctx, crm.Query{Search: "other"})
	require.NoError(t, err)
	require.Equal(t, 2, svc.count("find_many"))

	s.SetFilter("segment", "restaurant")
	assert.Equal(t, 0, s.Snapshot().Queries)
	s.ClearFilter("segment")

	v, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, v.Cached)
	assert.Equal(t, 3, svc.count("find_many"))
}

func TestConfigure_ResetsPageAndView(t *testing.T) {
	svc := newFakeService(newOrg("1", "a"), newOrg("2", "b"), newOrg("3", "c"))
	s := newTestStore(svc, newClock())
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = s.NextPage(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, s.Query().Page)

	s.SetSort("name", true)
	q := s.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, "name", q.Sort)
	assert.True(t, q.Desc)
	_, ok := s.Page()
	assert.False(t, ok)
	assert.Nil(t, s.Items())

	_, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "name", svc.LastQuery.Sort)
	assert.True(t, svc.LastQuery.Desc)
}

func TestPagination_NavigatesWithoutInvalidating(t *testing.T) {
	svc := newFakeService(newOrg("1", "a"), newOrg("2", "b"), newOrg("3", "c"))
	s := newTestStore(svc, newClock())
	ctx := context.Background()

	v, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, v.IDs)
	assert.True(t, v.PageInfo.HasMore)

	v, err = s.NextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, v.IDs)
	info, ok := s.Page()
	require.True(t, ok)
	assert.Equal(t, 2, info.Page)
	assert.Equal(t, 3, info.Count)

	_, err = s.NextPage(ctx)
	assert.ErrorIs(t, err, ErrNoPage)

	v, err = s.PrevPage(ctx)
	require.NoError(t, err)
	assert.True(t, v.Cached)
	assert.Equal(t, []string{"1", "2"}, ids(s.Items()))
	assert.Equal(t, 2, svc.count("find_many"))

	_, err = s.PrevPage(ctx)
	assert.ErrorIs(t, err, ErrNoPage)
	_, err = s.GoToPage(ctx, 3)
	assert.ErrorIs(t, err, ErrNoPage)
	_, err = s.GoToPage(ctx, 0)
	assert.ErrorIs(t, err, ErrNoPage)

	v, err = s.GoToPage(ctx, 2)
	require.NoError(t, err)
	assert.True(t, v.Cached)
}

func TestLoadMore_ReplacesViewWithNextPage(t *testing.T) {
	svc := newFakeService(newOrg("1", "a"), newOrg("2", "b"), newOrg("3", "c"))
	s := newTestStore(svc, newClock())
	ctx := context.Background()

	first, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, first.IDs)

	v, err := s.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, v.IDs)
	assert.Equal(t, []string{"3"}, ids(s.Items()))
	assert.Equal(t, 2, s.Query().Page)
	info, ok := s.Page()
	require.True(t, ok)
	assert.False(t, info.HasMore)

	_, err = s.LoadMore(ctx)
	assert.ErrorIs(t, err, ErrNoPage)
}

func TestFiltered_SearchFilterSortOverCache(t *testing.T) {
	s := newTestStore(newFakeService(), newClock())

	a := newOrg("1", "Acme Foods")
	a.City = "Austin"
	a.Segment = "distributor"
	b := newOrg("2", "Bistro")
	b.City = "Boston"
	b.Segment = "restaurant"
	c := newOrg("3", "Cafe Acme")
	c.City = "Chicago"
	c.Segment = "restaurant"
	gone := newOrg("4", "Acme Old")
	deletedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gone.DeletedAt = &deletedAt
	for _, e := range []org{a, b, c, gone} {
		s.Put(e)
	}

	s.SetSearch("ACME")
	assert.Equal(t, []string{"1", "3"}, ids(s.Filtered()))

	s.SetSearch("boston")
	assert.Equal(t, []string{"2"}, ids(s.Filtered()))

	s.SetSearch("")
	s.SetSort("name", true)
	assert.Equal(t, []string{"3", "2", "1"}, ids(s.Filtered()))

	s.SetFilter("segment", "restaurant")
	assert.Equal(t, []string{"3", "2"}, ids(s.Filtered()))

	s.ClearFilters()
	s.SetIncludeDeleted(true)
	assert.Len(t, s.Filtered(), 4)
}

func TestFiltered_SortsNumbersNumerically(t *testing.T) {
	s := New[crm.Product](nil, Options[crm.Product]{Name: "products"})
	cheap := crm.Product{Base: crm.Base{ID: "p1"}, Name: "Salt", ListPrice: 9}
	dear := crm.Product{Base: crm.Base{ID: "p2"}, Name: "Saffron", ListPrice: 10}
	s.Put(dear)
	s.Put(cheap)

	s.SetSort("list_price", false)
	got := s.Filtered()
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
}

func TestSelection(t *testing.T) {
	svc := newFakeService(newOrg("1", "a"), newOrg("2", "b"), newOrg("3", "c"))
	s := newTestStore(svc, newClock())

	assert.False(t, s.Select("1"), "unknown ids cannot be selected")
	assert.Equal(t, 0, s.SelectAllVisible())

	_, err := s.Load(context.Background())
	require.NoError(t, err)

	assert.False(t, s.Select("3"), "3 is on the next page and not cached yet")
	assert.True(t, s.Select("1"))
	assert.Equal(t, 1, s.SelectAllVisible())
	assert.Equal(t, []string{"1", "2"}, s.Selected())

	assert.False(t, s.Toggle("2"))
	assert.True(t, s.Toggle("2"))
	s.Deselect("1")
	assert.False(t, s.IsSelected("1"))

	s.ClearSelection()
	assert.Empty(t, s.Selected())
}
