package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStore_LoadUnknownReturnsFreshSession(t *testing.T) {
	store := NewSessionStore(0)

	sess := store.Load("does-not-exist")
	assert.True(t, sess.IsNew())
	assert.NotEmpty(t, sess.ID)
	assert.NotEqual(t, "does-not-exist", sess.ID)
	assert.False(t, sess.Flag(AdminSessionFlag))
}

func TestSessionStore_SaveAndReload(t *testing.T) {
	store := NewSessionStore(time.Hour)

	sess := store.Load("")
	sess.SetFlag("share:abc:ok")
	store.Save(sess)

	again := store.Load(sess.ID)
	assert.False(t, again.IsNew())
	assert.Same(t, sess, again)
	assert.True(t, again.Flag("share:abc:ok"))
	assert.False(t, again.Flag("share:other:ok"))
}

func TestSessionStore_IdleExpiry(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sess := store.Load("")
	sess.SetFlag(AdminSessionFlag)
	store.Save(sess)

	now = now.Add(30 * time.Minute)
	assert.True(t, store.Load(sess.ID).Flag(AdminSessionFlag))

	now = now.Add(2 * time.Hour)
	expired := store.Load(sess.ID)
	assert.True(t, expired.IsNew())
	assert.False(t, expired.Flag(AdminSessionFlag))
}

func TestSessionStore_Destroy(t *testing.T) {
	store := NewSessionStore(time.Hour)
	sess := store.Load("")
	sess.SetFlag(AdminSessionFlag)
	store.Save(sess)

	store.Destroy(sess.ID)
	assert.True(t, store.Load(sess.ID).IsNew())
}
