package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempEntries(s *Store[org]) []org {
	var out []org
	for _, e := range s.Filtered() {
		if strings.HasPrefix(e.ID, TempIDPrefix) {
			out = append(out, e)
		}
	}
	return out
}

func TestCreate_TemporaryEntryReplacedByServerEntity(t *testing.T) {
	clock := newClock()
	svc := newFakeService(newOrg("1", "Bistro"))
	entered := make(chan org)
	release := make(chan struct{})
	created := newOrg("real-1", "Acme")
	created.CreatedAt = clock.Now().Add(-1)
	svc.create = func(ctx context.Context, payload org) (org, error) {
		entered <- payload
		<-release
		return created, nil
	}
	s := newTestStore(svc, clock)
	s.BindSession(newFakeSession("u-1"))
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, s.Snapshot().Queries)

	done := make(chan error, 1)
	go func() {
		_, err := s.Create(ctx, org{Name: "Acme"})
		done <- err
	}()

	sent := <-entered
	assert.Empty(t, sent.ID)

	tmp := tempEntries(s)
	require.Len(t, tmp, 1)
	assert.Equal(t, "Acme", tmp[0].Name)
	assert.Equal(t, "u-1", tmp[0].CreatedBy)
	assert.True(t, tmp[0].CreatedAt.Equal(clock.Now()))
	assert.True(t, s.Loading(OpCreate))

	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, tempEntries(s))
	got, err := s.Get("real-1")
	require.NoError(t, err)
	assert.Equal(t, created, got)
	assert.Equal(t, 0, s.Snapshot().Queries)
	assert.False(t, s.Loading(OpCreate))
}

func TestCreate_FailureLeavesNoTrace(t *testing.T) {
	svc := newFakeService()
	boom := common.NewServiceError(422, "name taken", nil)
	svc.create = func(context.Context, org) (org, error) { return org{}, boom }
	s := newTestStore(svc, newClock())

	_, err := s.Create(context.Background(), org{Name: "Acme"})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, boom, s.Err(OpCreate))
	assert.Equal(t, 0, s.Snapshot().Cached)
	assert.Empty(t, tempEntries(s))
}

func TestUpdate_OverlayVisibleUntilServerConfirms(t *testing.T) {
	svc := newFakeService()
	entered := make(chan struct{})
	release := make(chan struct{})
	svc.update = func(ctx context.Context, id string, patch crm.Patch) (org, error) {
		close(entered)
		<-release
		out := newOrg(id, "Acme Foods")
		out.City = "Austin"
		return out, nil
	}
	s := newTestStore(svc, newClock())
	s.Put(newOrg("1", "Acme"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Update(context.Background(), "1", crm.Patch{"name": "Acme Foods"})
		done <- err
	}()
	<-entered

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Foods", got.Name)
	confirmed, ok := s.Confirmed("1")
	require.True(t, ok)
	assert.Equal(t, "Acme", confirmed.Name)
	assert.True(t, s.Pending("1"))

	close(release)
	require.NoError(t, <-done)

	got, err = s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Austin", got.City)
	assert.False(t, s.Pending("1"))
}

func TestUpdate_FailureRevertsToConfirmedValue(t *testing.T) {
	svc := newFakeService()
	boom := errors.New("connection reset")
	svc.update = func(context.Context, string, crm.Patch) (org, error) { return org{}, boom }
	s := newTestStore(svc, newClock())
	orig := newOrg("1", "Acme")
	s.Put(orig)

	_, err := s.Update(context.Background(), "1", crm.Patch{"name": "Broken"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, boom, s.Err(OpUpdate))

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, orig, got)
	assert.False(t, s.Pending("1"))
}

func TestUpdate_OverlappingMutationsLastResolvedWins(t *testing.T) {
	svc := newFakeService()
	enteredA, releaseA := make(chan struct{}), make(chan org)
	enteredB, releaseB := make(chan struct{}), make(chan org)
	svc.update = func(ctx context.Context, id string, patch crm.Patch) (org, error) {
		if _, ok := patch["name"]; ok {
			close(enteredA)
			return <-releaseA, nil
		}
		close(enteredB)
		return <-releaseB, nil
	}
	s := newTestStore(svc, newClock())
	s.Put(newOrg("1", "Acme"))
	ctx := context.Background()

	doneA, doneB := make(chan error, 1), make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, "1", crm.Patch{"name": "Acme A"})
		doneA <- err
	}()
	<-enteredA
	go func() {
		_, err := s.Update(ctx, "1", crm.Patch{"city": "Boston"})
		doneB <- err
	}()
	<-enteredB

	got, _ := s.Get("1")
	assert.Equal(t, "Acme A", got.Name)
	assert.Equal(t, "Boston", got.City)

	fromB := newOrg("1", "Acme")
	fromB.City = "Boston"
	releaseB <- fromB
	require.NoError(t, <-doneB)

	// A is still pending and keeps showing over B's confirmed value.
	got, _ = s.Get("1")
	assert.Equal(t, "Acme A", got.Name)
	assert.Equal(t, "Boston", got.City)

	fromA := newOrg("1", "Acme A")
	releaseA <- fromA
	require.NoError(t, <-doneA)

	got, _ = s.Get("1")
	assert.Equal(t, fromA, got)
	assert.False(t, s.Pending("1"))
}

func TestUpdate_InvalidatesOnlyQueriesListingTheID(t *testing.T) {
	svc := newFakeService(newOrg("1", "Acme"), newOrg("2", "Bistro"), newOrg("3", "Cafe"))
	s := newTestStore(svc, newClock())
	ctx := context.Background()

	_, err := s.FetchList(ctx, crm.Query{Page: 1})
	require.NoError(t, err)
	_, err = s.FetchList(ctx, crm.Query{Page: 2})
	require.NoError(t, err)

	_, err = s.Update(ctx, "3", crm.Patch{"name": "Cafe Rio"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Snapshot().Queries)
}

func TestDelete_HidesThenRemovesFromCacheAndSelection(t *testing.T) {
	svc := newFakeService()
	entered := make(chan struct{})
	release := make(chan struct{})
	svc.delete = func(context.Context, string) error {
		close(entered)
		<-release
		return nil
	}
	s := newTestStore(svc, newClock())
	s.Put(newOrg("1", "Acme"))
	require.True(t, s.Select("1"))

	done := make(chan error, 1)
	go func() { done <- s.Delete(context.Background(), "1") }()
	<-entered

	_, err := s.Get("1")
	assert.ErrorIs(t, err, ErrNotCached)

	close(release)
	require.NoError(t, <-done)

	_, ok := s.Confirmed("1")
	assert.False(t, ok)
	assert.False(t, s.IsSelected("1"))
	assert.Empty(t, s.Selected())
}

func TestDelete_FailureRestoresEntity(t *testing.T) {
	svc := newFakeService()
	svc.delete = func(context.Context, string) error {
		return common.NewServiceError(403, "not allowed", nil)
	}
	s := newTestStore(svc, newClock())
	s.Put(newOrg("1", "Acme"))
	require.True(t, s.Select("1"))

	err := s.Delete(context.Background(), "1")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	got, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.True(t, s.IsSelected("1"))
	assert.Error(t, s.Err(OpDelete))
}

func TestCreate_BlockingRuleStopsBeforeService(t *testing.T) {
	svc := newFakeService()
	s := newTestStore(svc, newClock(), func(o *Options[org]) {
		o.Rules = []Rule[org]{NewRule("name.required", "name", SeverityBlock, func(c Change[org]) string {
			if strings.TrimSpace(c.After.Name) == "" {
				return "is required"
			}
			return ""
		})}
	})

	_, err := s.Create(context.Background(), org{City: "Austin"})
	require.ErrorIs(t, err, common.ErrValidation)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Violations, 1)
	assert.Equal(t, "name", ve.Violations[0].Field)
	assert.Equal(t, 0, svc.count("create"))
	assert.Equal(t, 0, s.Snapshot().Cached)
}

func TestUpdate_WarningRuleLetsMutationThrough(t *testing.T) {
	svc := newFakeService()
	managers := fakeLookup{name: "users", ids: map[string]bool{"m-1": true}}
	s := newTestStore(svc, newClock())
	s.AddRule(RequireReference[org]("primary_manager_id", managers, func(o org) string { return o.PrimaryManagerID }))
	s.Put(newOrg("1", "Acme"))

	_, err := s.Update(context.Background(), "1", crm.Patch{"primary_manager_id": "m-9"})
	require.NoError(t, err)
	assert.Equal(t, 1, svc.count("update"))

	warns := s.Warnings(OpUpdate)
	require.Len(t, warns, 1)
	assert.Equal(t, SeverityWarn, warns[0].Severity)
	assert.Equal(t, "primary_manager_id", warns[0].Field)

	_, err = s.Update(context.Background(), "1", crm.Patch{"primary_manager_id": "m-1"})
	require.NoError(t, err)
	assert.Empty(t, s.Warnings(OpUpdate))
}
