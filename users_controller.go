package directory

import (
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is assumed when a phone number arrives without a
// country prefix.
const DefaultPhoneRegion = "ET"

// CreateUserRequest is the admin facing account creation payload.
type CreateUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Campus     string `json:"campus"`
	Department string `json:"department"`
	Phone      string `json:"phone_number"`
}

// Validate enforces the creation payload contract.
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 35)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Role, validation.Required, validation.By(validateRole)),
	)
}

// UpdateUserRequest is the partial update payload; nil fields are left
// untouched.
type UpdateUserRequest struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Role           *string `json:"role"`
	Status         *string `json:"status"`
	Campus         *string `json:"campus"`
	Department     *string `json:"department"`
	Phone          *string `json:"phone_number"`
	ProfilePicture *string `json:"profile_picture"`

	// Hierarchy references are descriptive metadata, not permissions.
	VicePresidentID   *int64  `json:"vice_president_id"`
	VicePresidentName *string `json:"vice_president_name"`
	DirectorID        *int64  `json:"director_id"`
	DirectorName      *string `json:"director_name"`
	OfficeHeadID      *int64  `json:"office_head_id"`
	OfficeHeadName    *string `json:"office_head_name"`
}

// Validate enforces the update payload contract.
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.By(validateRolePtr)),
		validation.Field(&r.Status, validation.By(validateStatusPtr)),
	)
}

func validateRole(value any) error {
	role, _ := value.(string)
	if role == "" {
		return nil
	}
	if _, ok := ParseRole(role); !ok {
		return errors.New("invalid role", errors.CategoryValidation)
	}
	return nil
}

func validateRolePtr(value any) error {
	role, _ := value.(*string)
	if role == nil {
		return nil
	}
	return validateRole(*role)
}

func validateStatusPtr(value any) error {
	status, _ := value.(*string)
	if status == nil || *status == "" {
		return nil
	}
	switch *status {
	case UserStatusActive, UserStatusInactive, UserStatusPending, UserStatusSuspended:
		return nil
	}
	return errors.New("invalid status", errors.CategoryValidation)
}

// NormalizePhone formats a phone number to E.164 so equality checks and
// display agree. Invalid numbers are rejected rather than stored raw.
func NormalizePhone(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "invalid phone number").
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_PHONE")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_PHONE")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// UsersController exposes the directory management endpoints.
type UsersController struct {
	users  Users
	hasher *Hasher
	logger Logger
}

// NewUsersController wires the user management HTTP surface.
func NewUsersController(users Users, hasher *Hasher, logger Logger) *UsersController {
	if logger == nil {
		logger = defLogger{}
	}
	return &UsersController{users: users, hasher: hasher, logger: logger}
}

// List handles GET /users with pagination and filtering.
func (uc *UsersController) List(c *fiber.Ctx) error {
	params := ListUsersParams{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", defaultPerPage),
		Role:    UserRole(c.Query("role")),
		Status:  c.Query("status"),
		Campus:  c.Query("campus"),
		Query:   c.Query("q"),
	}
	params.Normalize()

	if params.Role != "" && !IsValidRole(params.Role) {
		return RespondError(c, errors.New("invalid role filter", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_ROLE"))
	}

	records, total, err := uc.users.List(c.UserContext(), params)
	if err != nil {
		return RespondError(c, err)
	}

	items := make([]*User, 0, len(records))
	for _, record := range records {
		items = append(items, record.Sanitize())
	}

	return RespondPage(c, items, NewPageMeta(params.Page, params.PerPage, total))
}

// Get handles GET /users/:id.
func (uc *UsersController) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return RespondError(c, err)
	}

	record, err := uc.users.GetByID(c.UserContext(), id)
	if err != nil {
		return RespondError(c, err)
	}
	if record.Deleted {
		return RespondError(c, ErrIdentityNotFound)
	}

	return RespondData(c, http.StatusOK, record.Sanitize())
}

// Create handles POST /users.
func (uc *UsersController) Create(c *fiber.Ctx) error {
	payload := CreateUserRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_BODY"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest).
			WithTextCode("VALIDATION_FAILED"))
	}

	phone, err := NormalizePhone(payload.Phone)
	if err != nil {
		return RespondError(c, err)
	}

	hash, err := uc.hasher.Hash(payload.Password)
	if err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryInternal, "failed to hash password"))
	}

	role, _ := ParseRole(payload.Role)
	record := &User{
		Email:        payload.Email,
		PasswordHash: hash,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
		Role:         role,
		Status:       UserStatusActive,
		Campus:       payload.Campus,
		Department:   payload.Department,
		Phone:        phone,
	}

	created, err := uc.users.Create(c.UserContext(), record)
	if err != nil {
		return RespondError(c, err)
	}

	uc.logger.Info("Create added account", "id", created.ID, "email", created.Email, "role", created.Role)
	return RespondData(c, http.StatusCreated, created.Sanitize())
}

// Update handles PATCH /users/:id.
func (uc *UsersController) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return RespondError(c, err)
	}

	payload := UpdateUserRequest{}
	if err := c.BodyParser(&payload); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_BODY"))
	}

	if err := payload.Validate(); err != nil {
		return RespondError(c, errors.Wrap(err, errors.CategoryValidation, err.Error()).
			WithCode(errors.CodeBadRequest).
			WithTextCode("VALIDATION_FAILED"))
	}

	record, err := uc.users.GetByID(c.UserContext(), id)
	if err != nil {
		return RespondError(c, err)
	}
	if record.Deleted {
		return RespondError(c, ErrIdentityNotFound)
	}

	applyUpdate(record, payload)

	if payload.Phone != nil {
		phone, err := NormalizePhone(*payload.Phone)
		if err != nil {
			return RespondError(c, err)
		}
		record.Phone = phone
	}

	updated, err := uc.users.Update(c.UserContext(), record)
	if err != nil {
		return RespondError(c, err)
	}

	return RespondData(c, http.StatusOK, updated.Sanitize())
}

// Delete handles DELETE /users/:id with a soft delete.
func (uc *UsersController) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return RespondError(c, err)
	}

	if identity, ok := FromContext(c.UserContext()); ok && identity.ID == id {
		return RespondError(c, errors.New("cannot delete own account", errors.CategoryConflict).
			WithCode(errors.CodeConflict).
			WithTextCode("SELF_DELETE"))
	}

	if err := uc.users.SoftDelete(c.UserContext(), id); err != nil {
		return RespondError(c, err)
	}

	uc.logger.Info("Delete removed account", "id", id)
	return RespondData(c, http.StatusOK, fiber.Map{"id": id})
}

func applyUpdate(record *User, payload UpdateUserRequest) {
	if payload.FirstName != nil {
		record.FirstName = *payload.FirstName
	}
	if payload.LastName != nil {
		record.LastName = *payload.LastName
	}
	if payload.Role != nil {
		if role, ok := ParseRole(*payload.Role); ok {
			record.Role = role
		}
	}
	if payload.Status != nil {
		record.Status = *payload.Status
	}
	if payload.Campus != nil {
		record.Campus = *payload.Campus
	}
	if payload.Department != nil {
		record.Department = *payload.Department
	}
	if payload.ProfilePicture != nil {
		record.ProfilePicture = *payload.ProfilePicture
	}
	if payload.VicePresidentID != nil {
		record.VicePresidentID = payload.VicePresidentID
	}
	if payload.VicePresidentName != nil {
		record.VicePresidentName = *payload.VicePresidentName
	}
	if payload.DirectorID != nil {
		record.DirectorID = payload.DirectorID
	}
	if payload.DirectorName != nil {
		record.DirectorName = *payload.DirectorName
	}
	if payload.OfficeHeadID != nil {
		record.OfficeHeadID = payload.OfficeHeadID
	}
	if payload.OfficeHeadName != nil {
		record.OfficeHeadName = *payload.OfficeHeadName
	}
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid user id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_ID")
	}
	return id, nil
}
