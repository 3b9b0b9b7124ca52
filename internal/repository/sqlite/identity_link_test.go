package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dayloop/planner/internal/apperror"
	"github.com/dayloop/planner/internal/model"
)

func createTestUser(t *testing.T, db *DB) *model.User {
	t.Helper()
	user := &model.User{Name: "owner", Status: model.StatusActive, Role: model.RoleUser}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestCreateAndGetLink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)

	link := &model.IdentityLink{
		Provider:   model.ProviderGoogle,
		ProviderID: "goog-123",
		UserID:     user.ID,
	}
	if err := db.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if link.ID == 0 {
		t.Fatal("CreateLink should assign an ID")
	}

	got, err := db.GetLinkByProviderID(ctx, model.ProviderGoogle, "goog-123")
	if err != nil {
		t.Fatalf("GetLinkByProviderID: %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %d, want %d", got.UserID, user.ID)
	}
	if got.Unlinked() {
		t.Error("a fresh link must not be unlinked")
	}

	// Same providerID under a different provider is a different identity.
	if _, err := db.GetLinkByProviderID(ctx, model.ProviderKakao, "goog-123"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("cross-provider lookup error = %v, want ErrNotFound", err)
	}
}

func TestCreateLink_DuplicateLiveLink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)

	first := &model.IdentityLink{Provider: model.ProviderGoogle, ProviderID: "goog-123", UserID: user.ID}
	if err := db.CreateLink(ctx, first); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	dup := &model.IdentityLink{Provider: model.ProviderGoogle, ProviderID: "goog-123", UserID: user.ID}
	if err := db.CreateLink(ctx, dup); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict (identity already live-linked)", err)
	}
}

func TestUnlinkAndRelink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db)

	link := &model.IdentityLink{Provider: model.ProviderGoogle, ProviderID: "goog-123", UserID: user.ID}
	if err := db.CreateLink(ctx, link); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	firstStamp := time.Now().Add(-time.Hour)
	if err := db.Unlink(ctx, link.ID, firstStamp); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	got, err := db.GetLinkByProviderID(ctx, model.ProviderGoogle, "goog-123")
	if err != nil {
		t.Fatalf("GetLinkByProviderID: %v", err)
	}
	if !got.Unlinked() {
		t.Fatal("link should be unlinked")
	}

	// Unlink is idempotent: a second call must not move the stamp.
	if err := db.Unlink(ctx, link.ID, time.Now()); err != nil {
		t.Fatalf("second Unlink: %v", err)
	}
	again, err := db.GetLinkByProviderID(ctx, model.ProviderGoogle, "goog-123")
	if err != nil {
		t.Fatalf("GetLinkByProviderID: %v", err)
	}
	if !again.UnlinkedAt.Equal(*got.UnlinkedAt) {
		t.Errorf("UnlinkedAt moved from %v to %v", got.UnlinkedAt, again.UnlinkedAt)
	}

	// Re-linking inserts a fresh live row; the lookup now returns it
	// instead of the unlinked one.
	relink := &model.IdentityLink{Provider: model.ProviderGoogle, ProviderID: "goog-123", UserID: user.ID}
	if err := db.CreateLink(ctx, relink); err != nil {
		t.Fatalf("CreateLink (relink): %v", err)
	}
	if relink.ID == link.ID {
		t.Error("relink must create a new row")
	}

	latest, err := db.GetLinkByProviderID(ctx, model.ProviderGoogle, "goog-123")
	if err != nil {
		t.Fatalf("GetLinkByProviderID after relink: %v", err)
	}
	if latest.ID != relink.ID {
		t.Errorf("lookup returned row %d, want the latest row %d", latest.ID, relink.ID)
	}
	if latest.Unlinked() {
		t.Error("latest row should be live")
	}
}

func TestGetLink_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetLinkByProviderID(context.Background(), model.ProviderApple, "never-seen")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
