package service

import (
	"math"

	"anoa.com/studentcommunity/internal/entity"
	"anoa.com/studentcommunity/pkg/dto"
)

// XP awarded per activity.
const (
	XpPostCreated    = 5
	XpAnswerCreated  = 10
	XpAnswerAccepted = 25
	XpVoteReceived   = 2
	XpMentorBonus    = 20
	XpCourseEnrolled = 5
	XpCourseDone     = 50
)

const XpPerLevel = 100

// Rank thresholds (all time). Ranks are permanent and never demote.
const (
	XpSenior = 1000
	XpMaster = 5000
)

// XpForActivity returns the fixed award for a positive activity type.
func XpForActivity(t entity.XpActivityType) int {
	switch t {
	case entity.XpPostCreated:
		return XpPostCreated
	case entity.XpAnswerCreated:
		return XpAnswerCreated
	case entity.XpAnswerAccepted:
		return XpAnswerAccepted
	case entity.XpVoteReceived:
		return XpVoteReceived
	case entity.XpMentorBonus:
		return XpMentorBonus
	case entity.XpCourseEnrolled:
		return XpCourseEnrolled
	case entity.XpCourseDone:
		return XpCourseDone
	}
	return 0
}

func CalculateLevel(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XpPerLevel + 1
}

func CalculateRank(xp int) entity.Rank {
	switch {
	case xp >= XpMaster:
		return entity.RankMaster
	case xp >= XpSenior:
		return entity.RankSenior
	default:
		return entity.RankJunior
	}
}

func rankThreshold(r entity.Rank) int {
	switch r {
	case entity.RankMaster:
		return XpMaster
	case entity.RankSenior:
		return XpSenior
	}
	return 0
}

// XpToNextLevel is the XP still missing for the next level.
func XpToNextLevel(xp int) int {
	return CalculateLevel(xp)*XpPerLevel - xp
}

// XpToNextRank is the XP still missing for the rank above current, 0 at MASTER.
func XpToNextRank(xp int, current entity.Rank) int {
	above := entity.RanksAbove(current)
	if len(above) == 0 {
		return 0
	}
	missing := rankThreshold(above[0]) - xp
	if missing < 0 {
		return 0
	}
	return missing
}

// EffectiveRank is the higher of the stored rank and the rank earned by xp.
func EffectiveRank(stored entity.Rank, xp int) entity.Rank {
	earned := CalculateRank(xp)
	if stored.Valid() && stored.Order() >= earned.Order() {
		return stored
	}
	return earned
}

// Progress builds the gamification status of a user.
func Progress(xp int, rank entity.Rank) dto.GamificationStatus {
	status := dto.GamificationStatus{
		Rank:          string(rank),
		NextRank:      "Max Rank",
		Level:         CalculateLevel(xp),
		CurrentXp:     xp,
		XpToNextLevel: XpToNextLevel(xp),
		XpToNextRank:  XpToNextRank(xp, rank),
		Progress:      100,
	}

	above := entity.RanksAbove(rank)
	if len(above) > 0 {
		next := above[0]
		status.NextRank = string(next)
		floor := rankThreshold(rank)
		span := rankThreshold(next) - floor
		if span > 0 {
			status.Progress = float64(xp-floor) / float64(span) * 100
		}
		status.Progress = math.Max(0, math.Min(100, status.Progress))
	}

	// Round progress to 2 decimal places
	status.Progress = math.Round(status.Progress*100) / 100
	return status
}
