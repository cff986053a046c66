package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/nyaruka/phonenumbers"
)

// GetRouterSession rebuilds the session object from the validated claims
// the auth middleware stored in the request locals.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return SessionFromClaims(claims, "")
}

// RegisterAuthRoutes mounts the auth surface: sign-in, sign-out,
// registration, the root route, and the recovery pages for missing and
// unapproved profiles.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Root, controller.RootShow).
		SetName("root.get")

	app.Post(controller.Routes.ProfileRefresh, controller.ProfileRefresh).
		SetName("profile-refresh.post")

	app.Post(fmt.Sprintf("%s/:user_id", controller.Routes.Approve), controller.Approve).
		SetName("profile-approve.post")
}

type AuthControllerRoutes struct {
	Login          string
	Logout         string
	Register       string
	Root           string
	ProfileRefresh string
	Approve        string
}

type AuthControllerViews struct {
	Login           string
	Register        string
	Loading         string
	NoProfile       string
	PendingApproval string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Machine      *StateMachine
	Router       *RootRouter
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			Login:          "/login",
			Logout:         "/logout",
			Register:       "/register",
			Root:           "/",
			ProfileRefresh: "/profile/refresh",
			Approve:        "/admin/profiles/approve",
		},
		Views: &AuthControllerViews{
			Login:           "login",
			Register:        "register",
			Loading:         "loading",
			NoProfile:       "no_profile",
			PendingApproval: "pending_approval",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Machine == nil {
		panic("Missing StateMachine in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Router == nil {
		c.Router = NewRootRouter(c.Machine, WithRootLogger(c.Logger))
	}

	return c
}

// WithControllerMachine sets the state machine driving the controller.
func WithControllerMachine(machine *StateMachine) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Machine = machine
		return c
	}
}

// WithControllerAuther sets the HTTP authenticator.
func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerRepo sets the repository manager used by admin actions.
func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

// WithControllerLogger overrides the default logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// RootShow resolves the root route: the only place that forwards a
// signed-in user to their dashboard.
func (a *AuthController) RootShow(ctx router.Context) error {
	decision := a.Router.Resolve()

	switch decision.Outcome {
	case RootShowLogin:
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": nil,
			"record": nil,
		})
	case RootShowNoProfile:
		return ctx.Render(a.Views.NoProfile, router.ViewContext{
			"refresh_route": a.Routes.ProfileRefresh,
		})
	case RootShowPendingApproval:
		return ctx.Render(a.Views.PendingApproval, router.ViewContext{
			"refresh_route": a.Routes.ProfileRefresh,
		})
	case RootRedirectDashboard:
		return ctx.Redirect(decision.Location, router.StatusSeeOther)
	default:
		return ctx.Render(a.Views.Loading, router.ViewContext{})
	}
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the user asked to stay signed in
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		// All credential failures read the same to the user.
		errs["authentication"] = ErrInvalidCredentials.Message
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, a.Routes.Root)

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect(a.Routes.Root, router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterAccountMessage{},
		"roles":  RegistrableRoles(),
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FullName        string `form:"full_name" json:"full_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Company         string `form:"company" json:"company"`
	Role            string `form:"role" json:"role"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber("US"))),
		validation.Field(&r.Company, validation.Length(0, 200)),
		validation.Field(&r.Role, validation.Required, validation.In(rolesAsAny(RegistrableRoles())...)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register account parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register account validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := SignUpRequest{
		FullName: payload.FullName,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Company:  payload.Company,
		Role:     Role(payload.Role),
		Password: payload.Password,
	}

	if err := a.Machine.SignUp(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering account",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Registration received, your account is pending approval",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// ProfileRefresh re-checks the profile for the signed-in user. This is the
// manual recovery path from the no-profile and pending-approval pages; a
// newly approved profile moves the user forward on the next root visit.
func (a *AuthController) ProfileRefresh(ctx router.Context) error {
	if err := a.Machine.RefetchProfile(ctx.Context()); err != nil {
		a.Logger.Warn("profile refresh request failed", "error", err)
	}
	return ctx.Redirect(a.Routes.Root, router.StatusSeeOther)
}

// Approve marks a profile approved. The route must be mounted behind an
// admin role guard.
func (a *AuthController) Approve(ctx router.Context) error {
	userID := ctx.Param("user_id", "")

	var actorID string
	if session := a.Machine.CurrentSession(); session != nil {
		actorID = session.GetUserID()
	}

	handler := NewApproveProfileHandler(a.Repo, nil)
	if err := handler.Execute(ctx.Context(), ApproveProfileMessage{
		UserID:  userID,
		ActorID: actorID,
	}); err != nil {
		a.Logger.Error("profile approval error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error approving profile",
		}).Redirect(DashboardPath(RoleAdmin), fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Profile approved",
	}).Redirect(DashboardPath(RoleAdmin), fiber.StatusSeeOther)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidatePhoneNumber checks the value parses as a dialable number for the
// given default region. Empty values pass; pair with validation.Required
// when the field is mandatory.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return errors.New("must be a valid phone number")
		}
		if !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field/message map for view rendering.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func rolesAsAny(roles []Role) []any {
	out := make([]any, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
