package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEED COURSES COMMAND
// Creates catalog courses at startup for local development. Ids are derived
// from the title, so restarting with the same list creates nothing new.
// ══════════════════════════════════════════════════════════════════════════════

var courseSeedNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://learnhub/courses"))

// CourseSeed describes one course to create.
type CourseSeed struct {
	Title    string `validate:"required,max=200"`
	Category string `validate:"max=100"`
}

// SeedCourseID returns the id a seeded course with this title gets.
func SeedCourseID(title string) string {
	return uuid.NewSHA1(courseSeedNamespace, []byte(title)).String()
}

// SeedCoursesCommand lists the courses to ensure.
type SeedCoursesCommand struct {
	Courses []CourseSeed `validate:"dive"`
}

// Validate validates the command.
func (c SeedCoursesCommand) Validate() error {
	return validateStruct("course", "Seed", c)
}

// SeedCoursesResult reports what was created.
type SeedCoursesResult struct {
	Created  []string
	Existing []string
}

// SeedCoursesHandler handles the SeedCoursesCommand.
type SeedCoursesHandler struct {
	deps Deps
	log  *logger.Logger
}

// NewSeedCoursesHandler creates a new SeedCoursesHandler.
func NewSeedCoursesHandler(deps Deps) *SeedCoursesHandler {
	deps = deps.withDefaults()
	return &SeedCoursesHandler{
		deps: deps,
		log:  deps.Logger.With(logger.Component("seed_courses")),
	}
}

// Handle creates every missing course in one transaction.
func (h *SeedCoursesHandler) Handle(ctx context.Context, cmd SeedCoursesCommand) (*SeedCoursesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.deps.Clock()
	result := &SeedCoursesResult{}

	err := h.deps.UoW.Write(ctx, func(ctx context.Context, repos port.Repositories) error {
		result.Created, result.Existing = nil, nil
		for _, seed := range cmd.Courses {
			id := SeedCourseID(seed.Title)
			_, err := repos.Courses().GetByID(ctx, id)
			if err == nil {
				result.Existing = append(result.Existing, id)
				continue
			}
			if !shared.IsNotFound(err) {
				return err
			}
			c := &course.Course{ID: id, Title: seed.Title, Category: seed.Category, CreatedAt: now}
			if err := repos.Courses().Create(ctx, c); err != nil {
				return err
			}
			result.Created = append(result.Created, id)
		}
		return nil
	})
	if err != nil {
		logFailure(h.log, "SeedCourses", err)
		return nil, err
	}

	h.log.Info("courses seeded",
		logger.Int("created", len(result.Created)),
		logger.Int("existing", len(result.Existing)),
	)
	return result, nil
}
