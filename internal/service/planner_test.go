package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Friday. Planning always starts the following day, a Saturday.
var friday = time.Date(2025, 6, 6, 10, 30, 0, 0, time.UTC)

func slotAt(day, hour int) time.Time {
	return time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC)
}

func draftPost(id int64, category string) *models.Post {
	return &models.Post{
		ID:       id,
		UserID:   1,
		Category: category,
		Status:   models.PostStatusDraft,
	}
}

func scheduledPost(id int64, at time.Time) *models.Post {
	return &models.Post{
		ID:          id,
		UserID:      1,
		Status:      models.PostStatusScheduled,
		ScheduledAt: &at,
	}
}

func defaultPlanConfig(restricted ...string) PlanConfig {
	cfg := PlanConfig{
		PostingHours:         []int{9, 12, 17},
		RestrictedCategories: map[string]struct{}{},
	}
	for _, c := range restricted {
		cfg.RestrictedCategories[c] = struct{}{}
	}
	return cfg
}

func TestPlanSlotsFillsEveryDaySlotBeforeAdvancing(t *testing.T) {
	var drafts []*models.Post
	for i := int64(1); i <= 7; i++ {
		drafts = append(drafts, draftPost(i, "General"))
	}

	assignments := PlanSlots(drafts, nil, defaultPlanConfig(), friday)
	require.Len(t, assignments, 7)

	want := []time.Time{
		slotAt(7, 9), slotAt(7, 12), slotAt(7, 17),
		slotAt(8, 9), slotAt(8, 12), slotAt(8, 17),
		slotAt(9, 9),
	}
	seen := map[time.Time]bool{}
	for i, a := range assignments {
		assert.Equal(t, want[i], a.At, "draft %d", i+1)
		assert.False(t, seen[a.At], "slot assigned twice")
		seen[a.At] = true
	}
}

func TestPlanSlotsWeekendRestrictionScenario(t *testing.T) {
	drafts := []*models.Post{
		draftPost(1, "General"),
		draftPost(2, "Business"),
		draftPost(3, "General"),
	}

	assignments := PlanSlots(drafts, nil, defaultPlanConfig("Business"), friday)
	require.Len(t, assignments, 3)

	// Saturday 9am, then Business jumps the weekend to Monday 9am, and the
	// skipped Saturday noon slot goes to the third draft.
	assert.Equal(t, slotAt(7, 9), assignments[0].At)
	assert.Equal(t, slotAt(9, 9), assignments[1].At)
	assert.Equal(t, slotAt(7, 12), assignments[2].At)
}

func TestPlanSlotsRestrictedCategoryNeverLandsOnWeekend(t *testing.T) {
	var drafts []*models.Post
	for i := int64(1); i <= 12; i++ {
		drafts = append(drafts, draftPost(i, "Business"))
	}

	assignments := PlanSlots(drafts, nil, defaultPlanConfig("Business"), friday)
	require.Len(t, assignments, 12)

	for _, a := range assignments {
		wd := a.At.Weekday()
		assert.NotEqual(t, time.Saturday, wd, "assigned %v", a.At)
		assert.NotEqual(t, time.Sunday, wd, "assigned %v", a.At)
	}
}

func TestPlanSlotsSkipsOccupiedSlots(t *testing.T) {
	scheduled := []*models.Post{
		scheduledPost(100, slotAt(7, 9)),
		scheduledPost(101, slotAt(7, 12)),
	}
	drafts := []*models.Post{draftPost(1, "General")}

	assignments := PlanSlots(drafts, scheduled, defaultPlanConfig(), friday)
	require.Len(t, assignments, 1)
	assert.Equal(t, slotAt(7, 17), assignments[0].At)
}

func TestPlanSlotsWeekendCheckedBeforeOccupancy(t *testing.T) {
	// Every weekend slot is free; the restricted draft must still skip them.
	drafts := []*models.Post{draftPost(1, "Business")}
	scheduled := []*models.Post{scheduledPost(100, slotAt(9, 9))}

	assignments := PlanSlots(drafts, scheduled, defaultPlanConfig("Business"), friday)
	require.Len(t, assignments, 1)
	assert.Equal(t, slotAt(9, 12), assignments[0].At)
}

func TestPlanSlotsSecondRunAvoidsFirstRunSlots(t *testing.T) {
	first := []*models.Post{draftPost(1, "General"), draftPost(2, "General")}
	firstRun := PlanSlots(first, nil, defaultPlanConfig(), friday)
	require.Len(t, firstRun, 2)

	var scheduled []*models.Post
	for _, a := range firstRun {
		scheduled = append(scheduled, scheduledPost(a.Post.ID, a.At))
	}

	second := []*models.Post{draftPost(3, "General"), draftPost(4, "General")}
	secondRun := PlanSlots(second, scheduled, defaultPlanConfig(), friday)
	require.Len(t, secondRun, 2)

	taken := map[time.Time]bool{}
	for _, a := range firstRun {
		taken[a.At] = true
	}
	for _, a := range secondRun {
		assert.False(t, taken[a.At], "slot %v reassigned", a.At)
	}
}

func TestPlanSlotsEmptyDrafts(t *testing.T) {
	assignments := PlanSlots(nil, nil, defaultPlanConfig(), friday)
	assert.Empty(t, assignments)
}

func TestAutoScheduleNothingToDo(t *testing.T) {
	pr := newFakePostRepo()
	planner := &plannerService{pr: pr, sr: &fakeSettingsRepo{}, now: func() time.Time { return friday }}

	result, err := planner.AutoSchedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Scheduled)
	assert.Equal(t, "no drafts to schedule", result.Message)
}

func TestAutoSchedulePersistsAssignments(t *testing.T) {
	pr := newFakePostRepo()
	pr.add(draftPost(1, "General"))
	pr.add(draftPost(2, "General"))
	planner := &plannerService{pr: pr, sr: &fakeSettingsRepo{}, now: func() time.Time { return friday }}

	result, err := planner.AutoSchedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scheduled)

	for id, want := range map[int64]time.Time{1: slotAt(7, 9), 2: slotAt(7, 12)} {
		post := pr.posts[id]
		assert.Equal(t, models.PostStatusScheduled, post.Status)
		require.NotNil(t, post.ScheduledAt)
		assert.Equal(t, want, *post.ScheduledAt)
	}
}

func TestAutoScheduleContinuesPastPersistFailure(t *testing.T) {
	pr := newFakePostRepo()
	pr.add(draftPost(1, "General"))
	pr.add(draftPost(2, "General"))
	pr.add(draftPost(3, "General"))
	pr.scheduleErr[2] = errors.New("write failed")
	planner := &plannerService{pr: pr, sr: &fakeSettingsRepo{}, now: func() time.Time { return friday }}

	result, err := planner.AutoSchedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scheduled)

	// The failed draft stays a draft; its slot is consumed for this run.
	assert.Equal(t, models.PostStatusDraft, pr.posts[2].Status)
	require.NotNil(t, pr.posts[3].ScheduledAt)
	assert.Equal(t, slotAt(7, 17), *pr.posts[3].ScheduledAt)
}

func TestAutoScheduleUsesUserSettings(t *testing.T) {
	pr := newFakePostRepo()
	pr.add(draftPost(1, "Fitness"))
	sr := &fakeSettingsRepo{settings: map[int64]*models.Settings{
		1: {UserID: 1, PostingHours: []int64{8}, RestrictedCategories: []string{"Fitness"}},
	}}
	planner := &plannerService{pr: pr, sr: sr, now: func() time.Time { return friday }}

	result, err := planner.AutoSchedule(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scheduled)
	require.NotNil(t, pr.posts[1].ScheduledAt)
	assert.Equal(t, slotAt(9, 8), *pr.posts[1].ScheduledAt)
}
