package entity

import (
	"time"

	"anoa.com/studentcommunity/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Rank is the mentorship tier of a user.
type Rank string

const (
	RankJunior Rank = "JUNIOR"
	RankSenior Rank = "SENIOR"
	RankMaster Rank = "MASTER"
)

// rankOrder is the single source of truth for rank comparison.
var rankOrder = map[Rank]int{
	RankJunior: 1,
	RankSenior: 2,
	RankMaster: 3,
}

// AllRanks lists every rank from lowest to highest.
func AllRanks() []Rank {
	ranks := make([]Rank, 0, len(rankOrder))
	for r := range rankOrder {
		ranks = append(ranks, r)
	}
	sortRanks(ranks)
	return ranks
}

func (r Rank) Valid() bool {
	_, ok := rankOrder[r]
	return ok
}

// Order returns the position of r in the hierarchy, or 0 for an unknown rank.
func (r Rank) Order() int {
	return rankOrder[r]
}

// Above reports whether r is strictly higher than other.
func (r Rank) Above(other Rank) bool {
	return r.Valid() && other.Valid() && r.Order() > other.Order()
}

// RanksAbove returns the ranks strictly higher than r, lowest first.
func RanksAbove(r Rank) []Rank {
	var out []Rank
	for candidate := range rankOrder {
		if candidate.Above(r) {
			out = append(out, candidate)
		}
	}
	sortRanks(out)
	return out
}

func sortRanks(ranks []Rank) {
	for i := 1; i < len(ranks); i++ {
		for j := i; j > 0 && ranks[j].Order() < ranks[j-1].Order(); j-- {
			ranks[j], ranks[j-1] = ranks[j-1], ranks[j]
		}
	}
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	RoleID       *uint     `json:"role_id"`
	Role         Role      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	Avatar       *string   `gorm:"type:text" json:"avatar,omitempty"`
	Bio          *string   `gorm:"type:text" json:"bio,omitempty"`
	Department   *string   `gorm:"size:100" json:"department,omitempty"`
	Grade        *int      `json:"grade,omitempty"`
	Rank         Rank      `gorm:"size:20;not null;default:JUNIOR;index" json:"rank"`
	Level        int       `gorm:"not null;default:1" json:"level"`
	Xp           int       `gorm:"not null;default:0;index" json:"xp"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	if u.Rank == "" {
		u.Rank = RankJunior
	}
	if u.Level == 0 {
		u.Level = 1
	}
	return
}

func (u *User) IsAdmin() bool {
	return u.Role.Name == RoleAdmin
}

// Summary returns the compact projection embedded in other resources.
func (u *User) Summary() dto.UserSummary {
	return dto.UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Avatar:     u.Avatar,
		Rank:       string(u.Rank),
		Level:      u.Level,
		Department: u.Department,
	}
}
