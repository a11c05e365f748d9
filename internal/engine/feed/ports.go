package feed

import (
	"context"

	"github.com/anonto42/pitchfeed/internal/engine/invest"
	"github.com/anonto42/pitchfeed/internal/engine/pagination"
	"github.com/anonto42/pitchfeed/internal/models"
)

// Backend is everything the feed needs from the collaborator API.
type Backend interface {
	pagination.Source
	invest.Backend
	BoostPost(ctx context.Context, postID string) error
}

// Identity reports the signed-in user, if any.
type Identity interface {
	CurrentUser() (models.UserCompact, bool)
}

// Surface is the presentation layer driven by the feed.
type Surface interface {
	ScrollTo(index int)
	PlayMedia(index int)
	StopMedia(index int)
	OpenInvest(flow *invest.Flow)
	RedirectToAuth()
}

// NopSurface ignores every presentation request.
type NopSurface struct{}

func (NopSurface) ScrollTo(int) {}
func (NopSurface) PlayMedia(int) {}
func (NopSurface) StopMedia(int) {}
func (NopSurface) OpenInvest(*invest.Flow) {}
func (NopSurface) RedirectToAuth() {}
