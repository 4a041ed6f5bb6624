package ports

import "context"

// BannerKind tells the UI which connectivity banner to show.
type BannerKind string

const (
	BannerNone         BannerKind = ""
	BannerOffline      BannerKind = "offline"
	BannerReconnecting BannerKind = "reconnecting"
	BannerResyncFailed BannerKind = "resync_failed"
)

// StatusStore is the UI-layer state the reconnect coordinator drives: which banner is
// visible and whether the document may be edited.
type StatusStore interface {
	SetBanner(ctx context.Context, kind BannerKind, message string) error
	SetReadOnly(ctx context.Context, readOnly bool) error
}
