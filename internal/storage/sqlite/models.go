package sqlite

import "github.com/JakeFAU/chess-graph-crawler/internal/crawler"

type playerModel struct {
	Username   string `gorm:"primaryKey"`
	Name       string `gorm:"not null;default:''"`
	Country    string `gorm:"not null"`
	PlayerID   int64  `gorm:"not null"`
	Joined     int64  `gorm:"not null"`
	LastOnline int64  `gorm:"not null"`
	Followers  int64  `gorm:"not null"`
}

func (playerModel) TableName() string { return "players" }

type gameModel struct {
	ID          uint   `gorm:"primaryKey"`
	TimeControl string `gorm:"not null"`
	EndTime     int64  `gorm:"not null"`
	Rated       bool   `gorm:"not null"`
	TimeClass   string `gorm:"not null"`
	Rules       string `gorm:"not null"`
	WhitePlayer string `gorm:"not null;index"`
	WhiteRating int    `gorm:"not null"`
	WhiteResult string `gorm:"not null"`
	BlackPlayer string `gorm:"not null;index"`
	BlackRating int    `gorm:"not null"`
	BlackResult string `gorm:"not null"`
}

func (gameModel) TableName() string { return "games" }

func newPlayerModel(p crawler.Player) playerModel {
	return playerModel{
		Username:   p.Username,
		Name:       p.Name,
		Country:    p.Country,
		PlayerID:   p.PlayerID,
		Joined:     p.Joined,
		LastOnline: p.LastOnline,
		Followers:  p.Followers,
	}
}

func newGameModels(games []crawler.Game) []gameModel {
	out := make([]gameModel, 0, len(games))
	for _, g := range games {
		out = append(out, gameModel{
			TimeControl: g.TimeControl,
			EndTime:     g.EndTime,
			Rated:       g.Rated,
			TimeClass:   g.TimeClass,
			Rules:       g.Rules,
			WhitePlayer: g.White.Username,
			WhiteRating: g.White.Rating,
			WhiteResult: g.White.Result,
			BlackPlayer: g.Black.Username,
			BlackRating: g.Black.Rating,
			BlackResult: g.Black.Result,
		})
	}
	return out
}
