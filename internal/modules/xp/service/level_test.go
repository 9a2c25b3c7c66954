package service

import (
	"testing"

	"anoa.com/studentcommunity/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestCalculateLevel(t *testing.T) {
	cases := map[int]int{0: 1, 99: 1, 100: 2, 250: 3, 1000: 11, -5: 1}
	for xp, want := range cases {
		assert.Equal(t, want, CalculateLevel(xp), "xp=%d", xp)
	}
}

func TestCalculateRank(t *testing.T) {
	assert.Equal(t, entity.RankJunior, CalculateRank(0))
	assert.Equal(t, entity.RankJunior, CalculateRank(999))
	assert.Equal(t, entity.RankSenior, CalculateRank(1000))
	assert.Equal(t, entity.RankSenior, CalculateRank(4999))
	assert.Equal(t, entity.RankMaster, CalculateRank(5000))
}

func TestXpToNext(t *testing.T) {
	assert.Equal(t, 100, XpToNextLevel(0))
	assert.Equal(t, 1, XpToNextLevel(199))

	assert.Equal(t, 1000, XpToNextRank(0, entity.RankJunior))
	assert.Equal(t, 4000, XpToNextRank(1000, entity.RankSenior))
	assert.Equal(t, 0, XpToNextRank(9000, entity.RankMaster))
	// a promoted senior with little xp still counts towards MASTER
	assert.Equal(t, 4900, XpToNextRank(100, entity.RankSenior))
}

func TestEffectiveRankNeverDemotes(t *testing.T) {
	assert.Equal(t, entity.RankMaster, EffectiveRank(entity.RankMaster, 10))
	assert.Equal(t, entity.RankSenior, EffectiveRank(entity.RankJunior, 1200))
	assert.Equal(t, entity.RankJunior, EffectiveRank("", 10))
}

func TestProgress(t *testing.T) {
	status := Progress(3000, entity.RankSenior)
	assert.Equal(t, "MASTER", status.NextRank)
	assert.Equal(t, 31, status.Level)
	assert.Equal(t, 2000, status.XpToNextRank)
	assert.Equal(t, 50.0, status.Progress)

	top := Progress(7000, entity.RankMaster)
	assert.Equal(t, "Max Rank", top.NextRank)
	assert.Equal(t, 100.0, top.Progress)

	assert.Equal(t, 0.0, Progress(0, entity.RankJunior).Progress)
}

func TestXpForActivity(t *testing.T) {
	assert.Equal(t, 25, XpForActivity(entity.XpAnswerAccepted))
	assert.Equal(t, 20, XpForActivity(entity.XpMentorBonus))
	assert.Equal(t, 0, XpForActivity(entity.XpAdminGrant))
}
