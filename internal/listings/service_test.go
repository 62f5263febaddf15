package listings_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/tourism-chat/internal/chat"
	"github.com/thereayou/tourism-chat/internal/listings"
	"github.com/thereayou/tourism-chat/internal/models"
	"github.com/thereayou/tourism-chat/internal/testutil"
)

func TestCreate_RoomPerKind(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	reg := chat.NewRegistry(db)
	svc := listings.NewService(db, reg)
	partner := testutil.CreateUser(t, db, "partner", models.RolePartner)

	tests := []struct {
		kind     models.ListingKind
		wantRoom bool
	}{
		{models.KindHotel, true},
		{models.KindRestaurant, true},
		{models.KindExcursion, true},
		{models.KindTransport, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			listing, err := svc.Create(ctx, partner, tt.kind, "Title")
			require.NoError(t, err)

			if !tt.wantRoom {
				assert.Nil(t, listing.ChatRoomID)
				return
			}
			require.NotNil(t, listing.ChatRoomID)
			room, err := reg.Resolve(ctx, *listing.ChatRoomID)
			require.NoError(t, err)
			assert.Equal(t, partner.ID, room.HostID)
			assert.Equal(t, fmt.Sprintf("%s_%d", tt.kind, listing.ID), room.Name)
		})
	}
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	svc := listings.NewService(db, chat.NewRegistry(db))
	partner := testutil.CreateUser(t, db, "partner", models.RolePartner)
	user := testutil.CreateUser(t, db, "user", models.RoleUser)

	_, err := svc.Create(ctx, user, models.KindHotel, "Nope")
	assert.ErrorIs(t, err, listings.ErrForbidden)
	_, err = svc.Create(ctx, partner, models.ListingKind("castle"), "Nope")
	assert.ErrorIs(t, err, listings.ErrInvalidKind)
	_, err = svc.Create(ctx, partner, models.KindHotel, "  ")
	assert.ErrorIs(t, err, listings.ErrInvalidTitle)
}

func TestDelete_CascadesRoom(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	reg := chat.NewRegistry(db)
	var released []uint
	reg.OnRelease(func(roomID uint) { released = append(released, roomID) })
	svc := listings.NewService(db, reg)
	owner := testutil.CreateUser(t, db, "owner", models.RolePartner)
	other := testutil.CreateUser(t, db, "other", models.RolePartner)
	admin := testutil.CreateUser(t, db, "admin", models.RoleAdmin)

	listing, err := svc.Create(ctx, owner, models.KindHotel, "Sea View")
	require.NoError(t, err)
	require.NotNil(t, listing.ChatRoomID)

	assert.ErrorIs(t, svc.Delete(ctx, other, listing.ID), listings.ErrForbidden)
	assert.Empty(t, released)
	require.NoError(t, svc.Delete(ctx, admin, listing.ID))
	assert.Equal(t, []uint{*listing.ChatRoomID}, released)

	_, err = reg.Resolve(ctx, *listing.ChatRoomID)
	assert.ErrorIs(t, err, chat.ErrRoomNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, owner, listing.ID), listings.ErrNotFound)
}

func TestAddReview(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	svc := listings.NewService(db, chat.NewRegistry(db))
	owner := testutil.CreateUser(t, db, "owner", models.RolePartner)
	guest := testutil.CreateUser(t, db, "guest", models.RoleUser)

	listing, err := svc.Create(ctx, owner, models.KindTransport, "Bus")
	require.NoError(t, err)

	_, err = svc.AddReview(ctx, guest, listing.ID, 6, "")
	assert.ErrorIs(t, err, listings.ErrInvalidRating)
	_, err = svc.AddReview(ctx, guest, 999, 4, "")
	assert.ErrorIs(t, err, listings.ErrNotFound)

	avg, err := svc.AddReview(ctx, guest, listing.ID, 4, "ok")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 0.001)
	avg, err = svc.AddReview(ctx, guest, listing.ID, 1, "late")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, avg, 0.001)
}
