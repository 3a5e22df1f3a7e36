package account

import "time"

// Категории значков.
const (
	CategoryMilestone   = "milestone"
	CategoryAchievement = "achievement"
)

// Badge - значок, выданный учётной записи. Имя уникально в пределах учётной записи.
type Badge struct {
	Name        string    `json:"name"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// Каталог значков, которые выдаёт жизненный цикл записи на курс.
var (
	BadgeFirstSteps = Badge{
		Name:        "First Steps",
		Icon:        "🎓",
		Description: "Enrolled in your first course",
		Category:    CategoryMilestone,
	}

	BadgeCourseComplete = Badge{
		Name:        "Course Complete",
		Icon:        "🏆",
		Description: "Completed a course",
		Category:    CategoryAchievement,
	}
)

// BadgeSet - упорядоченное множество значков (порядок выдачи сохраняется).
type BadgeSet []Badge

// Has проверяет наличие значка по имени.
func (s BadgeSet) Has(name string) bool {
	for _, b := range s {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Get возвращает значок по имени.
func (s BadgeSet) Get(name string) (Badge, bool) {
	for _, b := range s {
		if b.Name == name {
			return b, true
		}
	}
	return Badge{}, false
}

// Add добавляет значок, если значка с таким именем ещё нет.
// Возвращает сохранённый значок и признак того, что он был добавлен сейчас.
func (s *BadgeSet) Add(badge Badge, now time.Time) (Badge, bool) {
	if existing, ok := s.Get(badge.Name); ok {
		return existing, false
	}
	badge.EarnedAt = now
	*s = append(*s, badge)
	return badge, true
}

// Names возвращает имена значков в порядке выдачи.
func (s BadgeSet) Names() []string {
	names := make([]string, len(s))
	for i, b := range s {
		names[i] = b.Name
	}
	return names
}

// Clone возвращает копию множества.
func (s BadgeSet) Clone() BadgeSet {
	if s == nil {
		return BadgeSet{}
	}
	c := make(BadgeSet, len(s))
	copy(c, s)
	return c
}
