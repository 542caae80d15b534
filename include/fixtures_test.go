package include

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rediwo/redi-eager/drivers/memory"
	"github.com/rediwo/redi-eager/models"
	"github.com/rediwo/redi-eager/schema"
	"github.com/rediwo/redi-eager/types"
	"github.com/stretchr/testify/require"
)

type findCall struct {
	model string
	where string
	opts  types.FindOptions
}

// countingFinder records every Find and can fail on chosen models.
type countingFinder struct {
	types.Finder

	mu    sync.Mutex
	calls []findCall
	fail  map[string]error
}

func (f *countingFinder) Find(ctx context.Context, model string, where types.Condition, opts types.FindOptions) ([]types.Record, error) {
	f.mu.Lock()
	call := findCall{model: model, opts: opts}
	if where != nil {
		call.where = where.String()
	}
	f.calls = append(f.calls, call)
	err := f.fail[model]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Finder.Find(ctx, model, where, opts)
}

func (f *countingFinder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *countingFinder) countFor(model string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.model == model {
			n++
		}
	}
	return n
}

func (f *countingFinder) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

type fixture struct {
	db       *memory.DB
	registry *schema.Registry
	finder   *countingFinder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := schema.NewRegistry()
	for _, name := range []string{
		"User", "Profile", "AccessToken", "Passport", "Post", "Assembly", "Part",
		"Physician", "Patient", "Appointment", "Author", "Reader", "Picture",
	} {
		require.NoError(t, reg.Define(schema.New(name)))
	}

	require.NoError(t, reg.BelongsTo("Passport", "owner", schema.RelationOptions{Model: "User"}))
	require.NoError(t, reg.HasMany("User", "passports", schema.RelationOptions{ForeignKey: "ownerId"}))
	require.NoError(t, reg.HasMany("User", "posts", schema.RelationOptions{ForeignKey: "userId"}))
	require.NoError(t, reg.HasMany("User", "accesstokens", schema.RelationOptions{ForeignKey: "userId", DisableInclude: true}))
	require.NoError(t, reg.BelongsTo("Profile", "user", schema.RelationOptions{Model: "User"}))
	require.NoError(t, reg.HasOne("User", "profile", schema.RelationOptions{ForeignKey: "userId"}))
	require.NoError(t, reg.BelongsTo("Post", "author", schema.RelationOptions{Model: "User", ForeignKey: "userId"}))
	require.NoError(t, reg.HasAndBelongsToMany("Assembly", "parts", schema.RelationOptions{Model: "Part"}))
	require.NoError(t, reg.HasAndBelongsToMany("Part", "assemblies", schema.RelationOptions{Model: "Assembly"}))

	require.NoError(t, reg.HasMany("Physician", "patients", schema.RelationOptions{Through: "Appointment"}))
	require.NoError(t, reg.BelongsTo("Appointment", "patient", schema.RelationOptions{}))
	require.NoError(t, reg.BelongsTo("Appointment", "physician", schema.RelationOptions{}))

	require.NoError(t, reg.BelongsTo("Picture", "imageable", schema.RelationOptions{Polymorphic: true}))
	require.NoError(t, reg.HasMany("Author", "pictures", schema.RelationOptions{Polymorphic: "imageable"}))
	require.NoError(t, reg.HasMany("Reader", "pictures", schema.RelationOptions{Polymorphic: "imageable"}))
	require.NoError(t, reg.HasOne("Reader", "avatar", schema.RelationOptions{Model: "Picture", Polymorphic: "imageable"}))

	db := memory.New()
	f := &fixture{db: db, registry: reg, finder: &countingFinder{Finder: db}}
	f.seed(t)
	return f
}

func (f *fixture) create(t *testing.T, model string, rows ...types.Record) {
	t.Helper()
	for _, row := range rows {
		_, err := f.db.Create(context.Background(), model, row)
		require.NoError(t, err)
	}
}

// seed mirrors the classic include fixtures: users A-E, passport 3 and
// post E without an owner, profiles for A and B only.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	f.create(t, "User",
		types.Record{"name": "User A", "age": int64(21)},
		types.Record{"name": "User B", "age": int64(22)},
		types.Record{"name": "User C", "age": int64(23)},
		types.Record{"name": "User D", "age": int64(24)},
		types.Record{"name": "User E", "age": int64(25)},
	)
	f.create(t, "AccessToken",
		types.Record{"token": "1", "userId": int64(1)},
		types.Record{"token": "2", "userId": int64(2)},
	)
	f.create(t, "Passport",
		types.Record{"number": "1", "ownerId": int64(1)},
		types.Record{"number": "2", "ownerId": int64(2)},
		types.Record{"number": "3"},
		types.Record{"number": "4", "ownerId": int64(3)},
	)
	f.create(t, "Post",
		types.Record{"title": "Post A", "userId": int64(1)},
		types.Record{"title": "Post B", "userId": int64(1)},
		types.Record{"title": "Post C", "userId": int64(1)},
		types.Record{"title": "Post D", "userId": int64(2)},
		types.Record{"title": "Post E"},
	)
	f.create(t, "Profile",
		types.Record{"profileName": "Profile A", "userId": int64(1)},
		types.Record{"profileName": "Profile B", "userId": int64(2)},
		types.Record{"profileName": "Profile Z"},
	)

	f.create(t, "Assembly", types.Record{"name": "car"}, types.Record{"name": "bike"})
	f.create(t, "Part",
		types.Record{"partNumber": "engine"},
		types.Record{"partNumber": "wheel"},
		types.Record{"partNumber": "door"},
	)
	f.create(t, "AssemblyPart",
		types.Record{"assemblyId": int64(1), "partId": int64(1)},
		types.Record{"assemblyId": int64(1), "partId": int64(2)},
		types.Record{"assemblyId": int64(1), "partId": int64(3)},
		types.Record{"assemblyId": int64(2), "partId": int64(2)},
		types.Record{"assemblyId": int64(2), "partId": int64(2)},
	)

	f.create(t, "Physician", types.Record{"name": "House"}, types.Record{"name": "Who"})
	f.create(t, "Patient", types.Record{"name": "a"}, types.Record{"name": "b"}, types.Record{"name": "c"})
	f.create(t, "Appointment",
		types.Record{"physicianId": int64(1), "patientId": int64(3)},
		types.Record{"physicianId": int64(1), "patientId": int64(1)},
		types.Record{"physicianId": int64(2), "patientId": int64(2)},
	)

	f.create(t, "Author", types.Record{"name": "Author 1"})
	f.create(t, "Reader", types.Record{"name": "Reader 1"}, types.Record{"name": "Reader 2"})
	f.create(t, "Picture",
		types.Record{"name": "Picture 1", "imageableId": int64(1), "imageableType": "Author"},
		types.Record{"name": "Picture 2", "imageableId": int64(1), "imageableType": "Reader"},
		types.Record{"name": "Picture 3", "imageableId": int64(1), "imageableType": "Author"},
		types.Record{"name": "Picture 4"},
	)
}

// load fetches every record of model in id order, bypassing the counter.
func (f *fixture) load(t *testing.T, model string) []*models.Instance {
	t.Helper()
	recs, err := f.db.Find(context.Background(), model, nil, types.FindOptions{
		Order: []types.OrderBy{{Field: "id"}},
	})
	require.NoError(t, err)
	return models.FromRecords(model, recs)
}

func (f *fixture) resolver(opts ...Option) *Resolver {
	return New(f.finder, f.registry, opts...)
}

func titles(c *models.Collection) []string {
	out := make([]string, 0, c.Len())
	for _, item := range c.Items() {
		out = append(out, fmt.Sprint(item.Get("title")))
	}
	return out
}

func fieldValues(c *models.Collection, field string) []any {
	out := make([]any, 0, c.Len())
	for _, item := range c.Items() {
		out = append(out, item.Get(field))
	}
	return out
}

// recordingObserver keeps every event for assertions.
type recordingObserver struct {
	mu      sync.Mutex
	plans   []PlanInfo
	queries int
	skipped []string
}

func (o *recordingObserver) BatchPlanned(info PlanInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.plans = append(o.plans, info)
}

func (o *recordingObserver) QueryIssued(model string, keys int, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queries++
}

func (o *recordingObserver) RelationSkipped(model, relation, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, model+"."+relation+":"+reason)
}
