package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/porchlight-social/guardrail/models"
	"github.com/porchlight-social/guardrail/rules"
)

type testItem struct {
	id     uint64
	author uint64
	text   string
}

func (i testItem) ContentID() uint64   { return i.id }
func (i testItem) AuthorID() uint64    { return i.author }
func (i testItem) ContentText() string { return i.text }

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ContentClassification{},
		&models.UserFilterProfile{},
		&models.UserFilterPreference{},
	))
	return db
}

func ids(items []testItem) []uint64 {
	out := make([]uint64, len(items))
	for i, item := range items {
		out[i] = item.id
	}
	return out
}

func TestApplyNoProfile(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng := NewEngine(testDB(t), nil)

	items := []testItem{{id: 1, author: 10, text: "hello"}, {id: 2, author: 11, text: "world"}}
	out, err := Apply(ctx, eng, 42, models.KindPost, items)
	assert.NoError(err)
	assert.Equal(items, out)
}

func TestApplyAccountAndKeywordMutes(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng := NewEngine(testDB(t), nil)

	require.NoError(eng.CreateProfile(ctx, &models.UserFilterProfile{
		UserID:       42,
		Name:         "main",
		IsDefault:    true,
		KeywordMutes: []string{"Crypto", "mlm"},
		AccountMutes: []uint64{11},
	}))

	items := []testItem{
		{id: 1, author: 10, text: "garage sale saturday"},
		{id: 2, author: 11, text: "free couch"},
		{id: 3, author: 12, text: "get rich with CRYPTO trading"},
		{id: 4, author: 13, text: "lost cat near the park"},
	}
	out, err := Apply(ctx, eng, 42, models.KindPost, items)
	assert.NoError(err)
	assert.Equal([]uint64{1, 4}, ids(out))
}

func TestApplyHiddenLabels(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	db := testDB(t)
	eng := NewEngine(db, nil)

	prof := &models.UserFilterProfile{
		UserID:          42,
		Name:            "strict",
		IsDefault:       true,
		CategoryToggles: map[string]bool{"Profanity": false, "Graphic Violence": true},
	}
	require.NoError(eng.CreateProfile(ctx, prof))

	require.NoError(db.Create(&models.ContentClassification{
		ContentKind: models.KindPost, ContentID: 2, ModelVersion: "rules-v1",
		Labels: []string{"Profanity"},
	}).Error)
	require.NoError(db.Create(&models.ContentClassification{
		ContentKind: models.KindPost, ContentID: 3, ModelVersion: "rules-v1",
		Labels: []string{"Graphic Violence"},
	}).Error)

	items := []testItem{{id: 1}, {id: 2}, {id: 3}}
	out, err := Apply(ctx, eng, 42, models.KindPost, items)
	assert.NoError(err)
	// only the disabled category hides; enabled labels pass through
	assert.Equal([]uint64{1, 3}, ids(out))

	// toggling the category back on takes effect on the very next call
	prof.CategoryToggles["Profanity"] = true
	require.NoError(eng.UpdateProfile(ctx, prof))
	out, err = Apply(ctx, eng, 42, models.KindPost, items)
	assert.NoError(err)
	assert.Equal([]uint64{1, 2, 3}, ids(out))
}

func TestApplyAllowExplicitContent(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	db := testDB(t)
	eng := NewEngine(db, nil)

	require.NoError(eng.CreateProfile(ctx, &models.UserFilterProfile{
		UserID:               42,
		Name:                 "main",
		IsDefault:            true,
		AllowExplicitContent: true,
		CategoryToggles:      map[string]bool{rules.LabelExplicitAdult: false, "Drug Use": false},
	}))

	require.NoError(db.Create(&models.ContentClassification{
		ContentKind: models.KindPost, ContentID: 1, ModelVersion: "rules-v1",
		Labels: []string{rules.LabelExplicitAdult},
	}).Error)
	require.NoError(db.Create(&models.ContentClassification{
		ContentKind: models.KindPost, ContentID: 2, ModelVersion: "rules-v1",
		Labels: []string{"Drug Use"},
	}).Error)

	out, err := Apply(ctx, eng, 42, models.KindPost, []testItem{{id: 1}, {id: 2}})
	assert.NoError(err)
	// the explicit override un-hides only the explicit-content label
	assert.Equal([]uint64{1}, ids(out))
}

func TestApplyDifferentKindUnaffected(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	db := testDB(t)
	eng := NewEngine(db, nil)

	require.NoError(eng.CreateProfile(ctx, &models.UserFilterProfile{
		UserID: 42, Name: "main", IsDefault: true,
		CategoryToggles: map[string]bool{"Profanity": false},
	}))
	// classification exists for a comment with the same numeric id
	require.NoError(db.Create(&models.ContentClassification{
		ContentKind: models.KindComment, ContentID: 1, ModelVersion: "rules-v1",
		Labels: []string{"Profanity"},
	}).Error)

	out, err := Apply(ctx, eng, 42, models.KindPost, []testItem{{id: 1}})
	assert.NoError(err)
	assert.Len(out, 1)
}

func TestActiveProfileResolution(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng := NewEngine(testDB(t), nil)

	// no profiles at all
	prof, err := eng.ActiveProfile(ctx, 42)
	require.NoError(err)
	assert.Nil(prof)

	older := &models.UserFilterProfile{UserID: 42, Name: "older", IsDefault: true}
	require.NoError(eng.CreateProfile(ctx, older))
	time.Sleep(5 * time.Millisecond)
	newer := &models.UserFilterProfile{UserID: 42, Name: "newer", IsDefault: true}
	require.NoError(eng.CreateProfile(ctx, newer))

	// most-recently-updated default wins absent a preference
	prof, err = eng.ActiveProfile(ctx, 42)
	require.NoError(err)
	require.NotNil(prof)
	assert.Equal("newer", prof.Name)

	// an explicit preference overrides the default
	require.NoError(eng.SetActiveProfile(ctx, 42, &older.ID))
	prof, err = eng.ActiveProfile(ctx, 42)
	require.NoError(err)
	require.NotNil(prof)
	assert.Equal("older", prof.Name)

	// clearing the preference falls back to the default again
	require.NoError(eng.SetActiveProfile(ctx, 42, nil))
	prof, err = eng.ActiveProfile(ctx, 42)
	require.NoError(err)
	require.NotNil(prof)
	assert.Equal("newer", prof.Name)
}

func TestCreateProfileNameUniquePerUser(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng := NewEngine(testDB(t), nil)

	require.NoError(eng.CreateProfile(ctx, &models.UserFilterProfile{UserID: 42, Name: "main"}))

	// same user, same name: rejected by the unique index
	err := eng.CreateProfile(ctx, &models.UserFilterProfile{UserID: 42, Name: "main"})
	assert.Error(err)

	// a different user may reuse the name
	assert.NoError(eng.CreateProfile(ctx, &models.UserFilterProfile{UserID: 43, Name: "main"}))

	// missing name or user is rejected before hitting the database
	assert.Error(eng.CreateProfile(ctx, &models.UserFilterProfile{UserID: 42}))
	assert.Error(eng.CreateProfile(ctx, &models.UserFilterProfile{Name: "orphan"}))
}

func TestDeleteProfileClearsPreference(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng := NewEngine(testDB(t), nil)

	prof := &models.UserFilterProfile{UserID: 42, Name: "main"}
	require.NoError(eng.CreateProfile(ctx, prof))
	require.NoError(eng.SetActiveProfile(ctx, 42, &prof.ID))

	require.NoError(eng.DeleteProfile(ctx, 42, prof.ID))
	out, err := eng.ActiveProfile(ctx, 42)
	require.NoError(err)
	assert.Nil(out)
}
