package matchmaking

import (
	"context"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/matchbot/internal/app"
	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/store"
)

// Service implements the Matchmaking gRPC API on top of the store.
// Each method corresponds to one store operation.
type Service struct {
	appCtx *app.AppContext
	store  *store.Store
}

var _ MatchmakingServer = (*Service)(nil)

// NewMatchmakingService creates the service with dependencies from AppContext.
func NewMatchmakingService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		store:  appCtx.Store,
	}
}

// GetProfile returns one profile.
//
// Example:
//
//	svc.GetProfile(ctx, {"user_id": "42"})
func (s *Service) GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return newStruct(map[string]any{"profile": profileValue(p)})
}

// NextCandidate returns the next profile for the viewer, applying the
// exhaust-clear-retry policy. found is false when the pool is empty.
func (s *Service) NextCandidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	viewerID, err := idField(req, "viewer_id")
	if err != nil {
		return nil, err
	}

	p, ok, err := s.store.Browse(ctx, viewerID)
	if err != nil {
		s.appCtx.Logger.Error("Browse failed", "viewer", viewerID, "err", err)
		return nil, svcErr.Map(err)
	}
	if !ok {
		return newStruct(map[string]any{"found": false})
	}
	return newStruct(map[string]any{"found": true, "profile": profileValue(p)})
}

// RecordReaction records a like, superlike or skip.
//
// Example:
//
//	svc.RecordReaction(ctx, {"from_user_id": "1", "to_user_id": "2", "kind": "like"})
func (s *Service) RecordReaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.appCtx.Logger.Debug(
		"RecordReaction called",
		"from", stringField(req, "from_user_id"),
		"to", stringField(req, "to_user_id"),
		"kind", stringField(req, "kind"),
	)

	fromID, err := idField(req, "from_user_id")
	if err != nil {
		return nil, err
	}
	toID, err := idField(req, "to_user_id")
	if err != nil {
		return nil, err
	}
	kind, err := store.ParseReaction(stringField(req, "kind"))
	if err != nil {
		return nil, svcErr.InvalidArgument("kind must be one of like, superlike, skip")
	}

	res, err := s.store.RecordReaction(ctx, fromID, toID, kind)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := map[string]any{
		"outcome": string(res.Outcome),
		"matched": res.Matched,
	}
	if res.Matched {
		out["match_id"] = strconv.FormatUint(res.MatchID, 10)
	}
	return newStruct(out)
}

// ListUnseenMatches returns the matches the user has not been shown, oldest first.
func (s *Service) ListUnseenMatches(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}

	matches, err := s.store.UnseenMatches(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	list := make([]any, 0, len(matches))
	for _, m := range matches {
		list = append(list, map[string]any{
			"match_id":       strconv.FormatUint(m.ID, 10),
			"other_user_id":  strconv.FormatInt(m.OtherID, 10),
			"unix_timestamp": m.CreatedAt.UnixMilli(),
		})
	}
	return newStruct(map[string]any{"matches": list})
}

// MarkMatchShown sets the caller's shown flag on a match.
func (s *Service) MarkMatchShown(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}
	raw := stringField(req, "match_id")
	matchID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, svcErr.InvalidArgument("match_id must be a valid uint64")
	}

	if err := s.store.MarkShown(ctx, matchID, userID); err != nil {
		return nil, svcErr.Map(err)
	}
	return newStruct(nil)
}

// ListAdmirers returns users who liked the recipient and are not matched
// with them, newest first.
//
// Behavior:
//   - Supports cursor-based pagination with pagination_token.
//   - Returns user_id + kind + timestamp triples.
func (s *Service) ListAdmirers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s.appCtx.Logger.Debug("ListAdmirers called", "recipient", stringField(req, "user_id"), "token", stringField(req, "pagination_token"))

	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}
	limit := 0
	if v, ok := req.GetFields()["limit"]; ok {
		limit = int(v.GetNumberValue())
	}

	admirers, next, err := s.store.ListAdmirers(ctx, userID, stringField(req, "pagination_token"), limit)
	if err != nil {
		s.appCtx.Logger.Error("ListAdmirers failed", "err", err)
		return nil, svcErr.Map(err)
	}

	list := make([]any, 0, len(admirers))
	for _, a := range admirers {
		list = append(list, map[string]any{
			"user_id":        strconv.FormatInt(a.UserID, 10),
			"kind":           string(a.Kind),
			"unix_timestamp": a.LikedAt.UnixMilli(),
		})
	}
	out := map[string]any{"admirers": list}
	if next != "" {
		out["next_pagination_token"] = next
	}

	s.appCtx.Logger.Debug("ListAdmirers result", "count", len(list), "next_token", next)
	return newStruct(out)
}

// CountAdmirers returns how many unmatched users liked the recipient.
// Redis first, DB on a miss.
func (s *Service) CountAdmirers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountAdmirers(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return newStruct(map[string]any{"count": count})
}

// PurgeUser removes an account with all its edges and matches.
func (s *Service) PurgeUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := idField(req, "user_id")
	if err != nil {
		return nil, err
	}

	removed, err := s.store.Purge(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	s.appCtx.Logger.Info("user purged via api", "user_id", userID, "removed", removed)
	return newStruct(map[string]any{"removed": removed})
}

// Stats returns profile totals.
func (s *Service) Stats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return newStruct(map[string]any{
		"total":            st.Total,
		"active_last_hour": st.ActiveHour,
	})
}

func profileValue(p *store.Profile) map[string]any {
	return map[string]any{
		"user_id":   strconv.FormatInt(p.ID, 10),
		"handle":    p.Handle,
		"name":      p.Name,
		"age":       p.Age,
		"bio":       p.Bio,
		"photo_id":  p.PhotoID,
		"step":      string(p.Step),
		"complete":  p.Complete(),
		"is_admin":  p.IsAdmin,
		"last_seen": p.LastActive.UnixMilli(),
	}
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

// idField parses a decimal user id.
func idField(req *structpb.Struct, name string) (int64, error) {
	raw := stringField(req, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, svcErr.InvalidArgument(name + " must be a valid int64")
	}
	return id, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return s, nil
}
