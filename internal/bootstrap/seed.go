package bootstrap

import (
	"log"

	"anoa.com/studentcommunity/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.Mentorship{},
		&entity.Notification{},
		&entity.Question{},
		&entity.Answer{},
		&entity.Vote{},
		&entity.XpActivity{},
		&entity.Attachment{},
		&entity.Category{},
		&entity.Post{},
		&entity.Comment{},
		&entity.CommentLike{},
		&entity.Course{},
		&entity.Chapter{},
		&entity.Enrollment{},
		&entity.ChapterProgress{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Platform administrator"},
		{Name: entity.RoleStudent, Description: "Student member"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedAdminUser(db *gorm.DB) error {
	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", "admin@studentcommunity.dev").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := entity.User{
		Name:         "Administrator",
		Email:        "admin@studentcommunity.dev",
		PasswordHash: string(hashedPasswordBytes),
		RoleID:       &adminRole.ID,
		Rank:         entity.RankMaster,
		Bio:          stringPtr("System Administrator"),
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("Admin user seeded: admin@studentcommunity.dev")
	return nil
}

// SeedDemoUsers creates one member per rank so mentorship flows can be tried
// locally.
func SeedDemoUsers(db *gorm.DB) error {
	var studentRole entity.Role
	if err := db.Where("name = ?", entity.RoleStudent).First(&studentRole).Error; err != nil {
		return err
	}

	demo := []struct {
		name  string
		email string
		rank  entity.Rank
		xp    int
	}{
		{"Junior Demo", "junior@studentcommunity.dev", entity.RankJunior, 120},
		{"Senior Demo", "senior@studentcommunity.dev", entity.RankSenior, 1450},
		{"Master Demo", "master@studentcommunity.dev", entity.RankMaster, 5200},
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("demo12345"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	for _, d := range demo {
		var count int64
		if err := db.Model(&entity.User{}).Where("email = ?", d.email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		user := entity.User{
			Name:         d.name,
			Email:        d.email,
			PasswordHash: string(hashed),
			RoleID:       &studentRole.ID,
			Rank:         d.rank,
			Xp:           d.xp,
			Level:        d.xp/100 + 1,
			Department:   stringPtr("Informatics"),
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	}

	log.Println("Demo users seeded")
	return nil
}

func stringPtr(s string) *string {
	return &s
}
