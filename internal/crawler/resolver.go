package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// DefaultBaseURL is the root of the chess.com published-data API.
const DefaultBaseURL = "https://api.chess.com/pub"

// profileDTO mirrors /player/{username}. Pointers distinguish absent fields.
type profileDTO struct {
	Username   *string `json:"username"`
	Name       *string `json:"name"`
	Country    *string `json:"country"`
	PlayerID   *int64  `json:"player_id"`
	Joined     *int64  `json:"joined"`
	LastOnline *int64  `json:"last_online"`
	Followers  *int64  `json:"followers"`
}

// archiveIndexDTO mirrors /player/{username}/games/archives.
type archiveIndexDTO struct {
	Archives *[]string `json:"archives"`
}

// monthlyGamesDTO mirrors one archive page.
type monthlyGamesDTO struct {
	Games *[]gameDTO `json:"games"`
}

type sideDTO struct {
	Username *string `json:"username"`
	Rating   *int    `json:"rating"`
	Result   *string `json:"result"`
}

type gameDTO struct {
	TimeControl *string  `json:"time_control"`
	EndTime     *int64   `json:"end_time"`
	Rated       *bool    `json:"rated"`
	TimeClass   *string  `json:"time_class"`
	Rules       *string  `json:"rules"`
	White       *sideDTO `json:"white"`
	Black       *sideDTO `json:"black"`
}

// Resolver fetches a player's profile and every game in its archives.
type Resolver struct {
	fetcher Fetcher
	baseURL string
	logger  *zap.Logger
}

// NewResolver builds a Resolver on top of fetcher, which is normally a
// ResilientFetcher. An empty baseURL means DefaultBaseURL.
func NewResolver(fetcher Fetcher, baseURL string, logger *zap.Logger) (*Resolver, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		fetcher: fetcher,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// Resolve returns the player and the full ordered list of its games. Any
// failure fails the whole resolution; partial game sets are never returned.
func (r *Resolver) Resolve(ctx context.Context, username string) (Player, []Game, error) {
	username = NormalizeUsername(username)
	r.logger.Debug("getting player info", zap.String("username", username))

	player, err := r.resolveProfile(ctx, username)
	if err != nil {
		return Player{}, nil, fmt.Errorf("resolve profile %q: %w", username, err)
	}
	games, err := r.resolveGames(ctx, username)
	if err != nil {
		return Player{}, nil, fmt.Errorf("resolve games %q: %w", username, err)
	}
	return player, games, nil
}

func (r *Resolver) profileURL(username string) string {
	return fmt.Sprintf("%s/player/%s", r.baseURL, url.PathEscape(username))
}

func (r *Resolver) archivesURL(username string) string {
	return r.profileURL(username) + "/games/archives"
}

func (r *Resolver) resolveProfile(ctx context.Context, username string) (Player, error) {
	var dto profileDTO
	if err := r.getJSON(ctx, r.profileURL(username), &dto); err != nil {
		return Player{}, err
	}
	return dto.toPlayer(username)
}

func (r *Resolver) resolveGames(ctx context.Context, username string) ([]Game, error) {
	var idx archiveIndexDTO
	if err := r.getJSON(ctx, r.archivesURL(username), &idx); err != nil {
		return nil, err
	}
	archives, err := required("archives", idx.Archives)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("fetching archives",
		zap.String("username", username),
		zap.Int("archives", len(archives)),
	)

	games := []Game{}
	for _, archive := range archives {
		var page monthlyGamesDTO
		if err := r.getJSON(ctx, archive, &page); err != nil {
			return nil, fmt.Errorf("archive %s: %w", archive, err)
		}
		entries, err := required("games", page.Games)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", archive, err)
		}
		for i, entry := range entries {
			game, err := entry.toGame()
			if err != nil {
				return nil, fmt.Errorf("archive %s game %d: %w", archive, i, err)
			}
			games = append(games, game)
		}
	}
	return games, nil
}

func (r *Resolver) getJSON(ctx context.Context, target string, v any) error {
	resp, err := r.fetcher.Fetch(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrMalformedEntity, target, err)
	}
	return nil
}

func (d profileDTO) toPlayer(requested string) (Player, error) {
	username, err := required("username", d.Username)
	if err != nil {
		return Player{}, err
	}
	if NormalizeUsername(username) != requested {
		return Player{}, fmt.Errorf("%w: profile username %q does not match %q",
			ErrMalformedEntity, username, requested)
	}
	country, err := required("country", d.Country)
	if err != nil {
		return Player{}, err
	}
	playerID, err := required("player_id", d.PlayerID)
	if err != nil {
		return Player{}, err
	}
	joined, err := required("joined", d.Joined)
	if err != nil {
		return Player{}, err
	}
	lastOnline, err := required("last_online", d.LastOnline)
	if err != nil {
		return Player{}, err
	}
	followers, err := required("followers", d.Followers)
	if err != nil {
		return Player{}, err
	}
	name := ""
	if d.Name != nil {
		name = *d.Name
	}
	return Player{
		Username:   requested,
		Name:       name,
		Country:    countryCode(country),
		PlayerID:   playerID,
		Joined:     joined,
		LastOnline: lastOnline,
		Followers:  followers,
	}, nil
}

func (d gameDTO) toGame() (Game, error) {
	var (
		g   Game
		err error
	)
	if g.TimeControl, err = required("time_control", d.TimeControl); err != nil {
		return Game{}, err
	}
	if g.EndTime, err = required("end_time", d.EndTime); err != nil {
		return Game{}, err
	}
	if g.Rated, err = required("rated", d.Rated); err != nil {
		return Game{}, err
	}
	if g.TimeClass, err = required("time_class", d.TimeClass); err != nil {
		return Game{}, err
	}
	if g.Rules, err = required("rules", d.Rules); err != nil {
		return Game{}, err
	}
	if g.White, err = d.White.toSide("white"); err != nil {
		return Game{}, err
	}
	if g.Black, err = d.Black.toSide("black"); err != nil {
		return Game{}, err
	}
	return g, nil
}

func (d *sideDTO) toSide(color string) (Side, error) {
	if d == nil {
		return Side{}, fmt.Errorf("%w: missing field %q", ErrMalformedEntity, color)
	}
	username, err := required(color+".username", d.Username)
	if err != nil {
		return Side{}, err
	}
	rating, err := required(color+".rating", d.Rating)
	if err != nil {
		return Side{}, err
	}
	result, err := required(color+".result", d.Result)
	if err != nil {
		return Side{}, err
	}
	return Side{
		Username: NormalizeUsername(username),
		Rating:   rating,
		Result:   result,
	}, nil
}

func required[T any](field string, v *T) (T, error) {
	if v == nil {
		var zero T
		return zero, fmt.Errorf("%w: missing field %q", ErrMalformedEntity, field)
	}
	return *v, nil
}

// countryCode keeps the final path segment of the country URL,
// e.g. https://api.chess.com/pub/country/US -> US.
func countryCode(countryURL string) string {
	if i := strings.LastIndex(countryURL, "/"); i >= 0 {
		return countryURL[i+1:]
	}
	return countryURL
}
