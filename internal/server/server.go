package server

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"anoa.com/studentcommunity/internal/config"
	"anoa.com/studentcommunity/internal/jobs"
	"anoa.com/studentcommunity/internal/middleware"
	"anoa.com/studentcommunity/pkg/database"
	"anoa.com/studentcommunity/pkg/storage"

	adminHttp "anoa.com/studentcommunity/internal/modules/admin/delivery/http"
	adminService "anoa.com/studentcommunity/internal/modules/admin/service"

	attachmentHttp "anoa.com/studentcommunity/internal/modules/attachment/delivery/http"
	attachmentRepo "anoa.com/studentcommunity/internal/modules/attachment/repository"
	attachmentService "anoa.com/studentcommunity/internal/modules/attachment/service"

	categoryHttp "anoa.com/studentcommunity/internal/modules/category/delivery/http"
	categoryRepo "anoa.com/studentcommunity/internal/modules/category/repository"
	categoryService "anoa.com/studentcommunity/internal/modules/category/service"

	commentHttp "anoa.com/studentcommunity/internal/modules/comment/delivery/http"
	commentRepo "anoa.com/studentcommunity/internal/modules/comment/repository"
	commentService "anoa.com/studentcommunity/internal/modules/comment/service"

	courseHttp "anoa.com/studentcommunity/internal/modules/course/delivery/http"
	courseRepo "anoa.com/studentcommunity/internal/modules/course/repository"
	courseService "anoa.com/studentcommunity/internal/modules/course/service"

	mentorshipHttp "anoa.com/studentcommunity/internal/modules/mentorship/delivery/http"
	mentorshipRepo "anoa.com/studentcommunity/internal/modules/mentorship/repository"
	mentorshipService "anoa.com/studentcommunity/internal/modules/mentorship/service"

	notifHttp "anoa.com/studentcommunity/internal/modules/notification/delivery/http"
	"anoa.com/studentcommunity/internal/modules/notification/hub"
	notifRepo "anoa.com/studentcommunity/internal/modules/notification/repository"
	notifService "anoa.com/studentcommunity/internal/modules/notification/service"

	postHttp "anoa.com/studentcommunity/internal/modules/post/delivery/http"
	postRepo "anoa.com/studentcommunity/internal/modules/post/repository"
	postService "anoa.com/studentcommunity/internal/modules/post/service"

	profileHttp "anoa.com/studentcommunity/internal/modules/profile/delivery/http"
	profileService "anoa.com/studentcommunity/internal/modules/profile/service"

	qnaHttp "anoa.com/studentcommunity/internal/modules/qna/delivery/http"
	qnaRepo "anoa.com/studentcommunity/internal/modules/qna/repository"
	qnaService "anoa.com/studentcommunity/internal/modules/qna/service"

	reactionHttp "anoa.com/studentcommunity/internal/modules/reaction/delivery/http"
	reactionRepo "anoa.com/studentcommunity/internal/modules/reaction/repository"
	reactionService "anoa.com/studentcommunity/internal/modules/reaction/service"

	searchService "anoa.com/studentcommunity/internal/modules/search/service"

	statHttp "anoa.com/studentcommunity/internal/modules/stat/delivery/http"
	statRepo "anoa.com/studentcommunity/internal/modules/stat/repository"
	statService "anoa.com/studentcommunity/internal/modules/stat/service"

	userHttp "anoa.com/studentcommunity/internal/modules/user/delivery/http"
	userRepo "anoa.com/studentcommunity/internal/modules/user/repository"
	userService "anoa.com/studentcommunity/internal/modules/user/service"

	viewService "anoa.com/studentcommunity/internal/modules/view/service"

	xpHttp "anoa.com/studentcommunity/internal/modules/xp/delivery/http"
	xpRepo "anoa.com/studentcommunity/internal/modules/xp/repository"
	xpService "anoa.com/studentcommunity/internal/modules/xp/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const socketBuffer = 32

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	hub         *hub.Hub
	scheduler   *jobs.Scheduler
	stopBridge  context.CancelFunc
}

// NewServer wires every module. redisClient and imageStorage may be nil; the
// features that need them degrade instead of failing.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, imageStorage storage.ImageStorage) (*Server, error) {
	transactor := database.NewTransactor(db)
	origins := splitOrigins(cfg.AllowedOrigins)

	// Notification Module
	notificationHub := hub.New(socketBuffer)
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	if redisClient != nil {
		go func() {
			if err := notificationHub.ListenRedis(bridgeCtx, redisClient); err != nil {
				log.Printf("Notification bridge stopped: %v", err)
			}
		}()
	}
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, notificationHub, redisClient)
	notificationHandler := notifHttp.NewNotificationHandler(notificationSvc, notificationHub, originChecker(origins))

	// Users
	usersRepository := userRepo.NewUserRepository(db)
	userHandler := userHttp.NewUserHandler(userService.NewUserService(usersRepository))
	profileHandler := profileHttp.NewProfileHandler(profileService.NewProfileService(usersRepository, imageStorage))
	adminHandler := adminHttp.NewAdminHandler(adminService.NewAdminService(usersRepository, imageStorage))

	// XP
	xpSvc := xpService.NewXpService(xpRepo.NewXpRepository(db), transactor, notificationSvc)
	xpHandler := xpHttp.NewXpHandler(xpSvc)

	// Mentorship
	mentorshipSvc := mentorshipService.NewMentorshipService(
		mentorshipRepo.NewMentorshipRepository(db),
		usersRepository,
		transactor,
		notificationSvc,
		xpSvc,
	)
	mentorshipHandler := mentorshipHttp.NewMentorshipHandler(mentorshipSvc)

	// Attachments
	attachmentSvc := attachmentService.NewAttachmentService(attachmentRepo.NewAttachmentRepository(db), imageStorage)
	attachmentHandler := attachmentHttp.NewAttachmentHandler(attachmentSvc)

	// Q&A
	questionRepository := qnaRepo.NewQuestionRepository(db)
	deps := qnaService.Deps{
		Questions:   questionRepository,
		Answers:     qnaRepo.NewAnswerRepository(db),
		Votes:       qnaRepo.NewVoteRepository(db),
		Users:       usersRepository,
		Transactor:  transactor,
		Xp:          xpSvc,
		Notifier:    notificationSvc,
		Attachments: attachmentSvc,
	}
	if cfg.MeiliSearchHost != "" {
		client := meilisearch.New(meiliHost(cfg.MeiliSearchHost), meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		deps.Search = searchService.NewMeiliSearchService(client)
	} else {
		log.Println("MEILISEARCH_HOST not set, question search disabled")
	}

	var viewSvc viewService.ViewService
	if redisClient != nil {
		viewSvc = viewService.NewViewService(redisClient, questionRepository)
		deps.Views = viewSvc
	}
	qnaHandler := qnaHttp.NewQnaHandler(qnaService.NewQnaService(deps))

	// Forum
	categoriesRepository := categoryRepo.NewCategoryRepository(db)
	categoryHandler := categoryHttp.NewCategoryHandler(categoryService.NewCategoryService(categoriesRepository, transactor))

	postsRepository := postRepo.NewPostRepository(db)
	reactionSvc := reactionService.NewReactionService(reactionService.Deps{
		Votes:      reactionRepo.NewReactionRepository(db),
		Posts:      postsRepository,
		Users:      usersRepository,
		Transactor: transactor,
		Xp:         xpSvc,
		Notifier:   notificationSvc,
	})
	reactionHandler := reactionHttp.NewReactionHandler(reactionSvc)
	postHandler := postHttp.NewPostHandler(postService.NewPostService(postService.Deps{
		Posts:      postsRepository,
		Categories: categoriesRepository,
		Transactor: transactor,
		Xp:         xpSvc,
		Votes:      reactionSvc,
	}))
	commentHandler := commentHttp.NewCommentHandler(commentService.NewCommentService(commentService.Deps{
		Comments:   commentRepo.NewCommentRepository(db),
		Posts:      postsRepository,
		Transactor: transactor,
		Notifier:   notificationSvc,
	}))

	// Courses
	courseHandler := courseHttp.NewCourseHandler(courseService.NewCourseService(courseService.Deps{
		Courses:     courseRepo.NewCourseRepository(db),
		Enrollments: courseRepo.NewEnrollmentRepository(db),
		Transactor:  transactor,
		Xp:          xpSvc,
	}))

	statHandler := statHttp.NewStatHandler(statService.NewStatService(statRepo.NewStatRepository(db), usersRepository))

	// Background jobs
	scheduler := jobs.NewScheduler()
	registered := []jobs.Job{
		jobs.NewXpResyncJob(cfg.XpResyncSchedule, xpSvc),
		jobs.NewNotificationRetentionJob(cfg.NotificationCleanupSchedule, cfg.NotificationRetention, notificationSvc),
		jobs.NewAttachmentCleanupJob(cfg.AttachmentCleanupSchedule, attachmentSvc),
	}
	if viewSvc != nil {
		registered = append(registered, jobs.NewViewSyncJob(cfg.ViewSyncSchedule, viewSvc))
	}
	for _, job := range registered {
		if err := scheduler.Register(job); err != nil {
			stopBridge()
			return nil, err
		}
	}
	jobsHandler := jobs.NewHandler(scheduler)

	router := gin.New()

	setupCORS(router, origins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/api/health", "/api/notifications/ws"},
	}))

	authMiddleware := middleware.NewAuthMiddleware(usersRepository, cfg.JWTSecret)

	s := &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		hub:         notificationHub,
		scheduler:   scheduler,
		stopBridge:  stopBridge,
	}

	api := router.Group("/api")
	api.GET("/health", s.health)

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/users", adminHandler.CreateUser)
			adminGroup.GET("/users", adminHandler.GetAllUsers)
			adminGroup.PUT("/users/:id", adminHandler.UpdateUser)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
			adminGroup.GET("/jobs", jobsHandler.ListJobs)
			adminGroup.POST("/jobs/:name/run", jobsHandler.RunJob)
		}

		// User routes
		protected.GET("/users", userHandler.ListUsers)
		protected.GET("/users/count", statHandler.GetTotalUsers)
		protected.GET("/users/:id", profileHandler.GetProfileByID)
		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)

		// XP routes
		protected.GET("/xp/history", xpHandler.GetHistory)
		protected.GET("/xp/leaderboard", xpHandler.GetLeaderboard)
		protected.GET("/xp/my-rank", xpHandler.GetMyRank)
		protected.POST("/xp/grant", authMiddleware.RequireAdmin(), xpHandler.GrantXp)
		protected.POST("/xp/check-level", authMiddleware.RequireAdmin(), xpHandler.CheckLevelUp)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
		protected.PATCH("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/:id", notificationHandler.GetNotification)
		protected.PATCH("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
		protected.DELETE("/notifications", notificationHandler.DeleteAll)

		protected.POST("/uploads", attachmentHandler.UploadAttachment)

		// Stats routes
		protected.GET("/stats/overview", statHandler.GetOverview)
		protected.GET("/stats/trending-questions", statHandler.GetTrendingQuestions)

		mentorshipHandler.RegisterRoutes(protected.Group("/mentorship"))
		qnaHandler.RegisterRoutes(protected.Group("/questions"), protected.Group("/answers"))

		forumPosts := protected.Group("/forum/posts")
		categoryHandler.RegisterRoutes(protected.Group("/forum/categories"), adminGroup.Group("/forum/categories"))
		postHandler.RegisterRoutes(forumPosts)
		reactionHandler.RegisterRoutes(forumPosts)
		commentHandler.RegisterRoutes(forumPosts, protected.Group("/forum/comments"))

		courseHandler.RegisterRoutes(
			protected.Group("/courses"),
			protected.Group("/chapters"),
			protected.Group("/enrollments"),
			adminGroup.Group("/courses"),
			adminGroup.Group("/chapters"),
		)
	}

	return s, nil
}

// Handler exposes the engine for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins the scheduled jobs.
func (s *Server) Start() {
	s.scheduler.Start()
}

// Shutdown stops background work. In-flight jobs are waited for.
func (s *Server) Shutdown() {
	s.scheduler.Stop()
	s.stopBridge()
	s.hub.Close()
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	dbStatus := "up"
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		dbStatus = "down"
		status = http.StatusServiceUnavailable
	}

	redisStatus := "disabled"
	if s.redisClient != nil {
		redisStatus = "up"
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "down"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "database": dbStatus, "redis": redisStatus})
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}

func setupCORS(router *gin.Engine, origins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

// originChecker accepts websocket upgrades from the CORS origins. Requests
// without an Origin header are not from a browser and pass.
func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		allowed[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func meiliHost(host string) string {
	if strings.HasPrefix(host, "http") {
		return host
	}
	u := url.URL{Scheme: "http", Host: host}
	if !strings.Contains(host, ":") {
		u.Host = host + ":7700"
	}
	return u.String()
}
