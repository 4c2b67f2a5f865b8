package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TemplateStatus is stored as a small integer column.
type TemplateStatus int

const (
	TemplateStatusDraft     TemplateStatus = 0
	TemplateStatusPublished TemplateStatus = 1
)

// QuestionType is stored as a small integer column.
type QuestionType int

const (
	QuestionTypeLikert QuestionType = 1
	QuestionTypeBinary QuestionType = 2
	QuestionTypeText   QuestionType = 3
)

// Roles carried by the identity service's token claims.
const (
	RoleAdmin        = "Admin"
	RoleStudent      = "Étudiant"
	RoleProfessor    = "Enseignant"
	RoleProfessional = "Professionnel"
)

type Template struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code      string         `gorm:"column:code;not null;uniqueIndex:idx_template_code_version" json:"code"`
	Version   int            `gorm:"column:version;not null;default:1;uniqueIndex:idx_template_code_version" json:"version"`
	FiliereID uuid.UUID      `gorm:"type:uuid;not null;index" json:"filiere_id"`
	Role      string         `gorm:"column:role;not null" json:"role"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Status    TemplateStatus `gorm:"column:status;not null;default:0" json:"status"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Template) TableName() string { return "questionnaire_template" }

// IsDraft reports whether structural mutation is still allowed. The
// Draft→Published transition is one-way.
func (t *Template) IsDraft() bool { return t != nil && t.Status == TemplateStatusDraft }

type Section struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TemplateID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_section_template_order" json:"template_id"`
	Template     *Template `gorm:"constraint:OnDelete:CASCADE;foreignKey:TemplateID;references:ID" json:"template,omitempty"`
	Title        string    `gorm:"column:title;not null" json:"title"`
	DisplayOrder int       `gorm:"column:display_order;not null;uniqueIndex:idx_section_template_order" json:"display_order"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Section) TableName() string { return "questionnaire_section" }

type Question struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SectionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Section   *Section       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"section,omitempty"`
	Wording   string         `gorm:"column:wording;not null" json:"wording"`
	Type      QuestionType   `gorm:"column:type;not null" json:"type"`
	Mandatory bool           `gorm:"column:mandatory;not null;default:true" json:"mandatory"`
	MaxLength *int           `gorm:"column:max_length" json:"max_length,omitempty"`
	Options   datatypes.JSON `gorm:"column:options;type:jsonb" json:"options"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Question) TableName() string { return "questionnaire_question" }

// OptionsFor derives the answer options from the question type. Options are
// never stored independently of the type, so they cannot drift.
func OptionsFor(t QuestionType) []string {
	switch t {
	case QuestionTypeLikert:
		return []string{"1", "2", "3", "4", "5"}
	case QuestionTypeBinary:
		return []string{"0", "1"}
	default:
		return []string{}
	}
}

// OptionsJSONFor is OptionsFor marshalled for the jsonb column.
func OptionsJSONFor(t QuestionType) datatypes.JSON {
	raw, _ := json.Marshal(OptionsFor(t))
	return datatypes.JSON(raw)
}
