// Package dashboard maps staff roles to dashboard views and module capabilities.
package dashboard

import (
	"go.uber.org/zap"

	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/observability"
	apperrors "github.com/spec-kit/hms-gateway/pkg/util/errorutil"
)

// Module IDs.
const (
	ModuleOverview      = "overview"
	ModuleUsers         = "users"
	ModulePatients      = "patients"
	ModuleRooms         = "rooms"
	ModuleBilling       = "billing"
	ModuleReports       = "reports"
	ModuleAppointments  = "appointments"
	ModuleOPD           = "opd"
	ModuleOT            = "ot"
	ModuleRegistration  = "registration"
	ModuleEmergency     = "emergency"
	ModuleInvoices      = "invoices"
	ModulePayments      = "payments"
	ModuleTests         = "tests"
	ModuleVitals        = "vitals"
	ModulePrescriptions = "prescriptions"
	ModuleInventory     = "inventory"
)

// MenuEntry is one item of a role's sidebar.
type MenuEntry struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// View is the dashboard selected for a role.
type View struct {
	Role          domain.Role `json:"role"`
	DefaultModule string      `json:"default_module"`
	Menu          []MenuEntry `json:"menu"`
}

// Module describes a dashboard module and the roles allowed to render it.
type Module struct {
	ID    string        `json:"id"`
	Label string        `json:"label"`
	Roles []domain.Role `json:"roles"`
}

var menus = map[domain.Role][]MenuEntry{
	domain.RoleAdmin: {
		{ModuleOverview, "Overview"},
		{ModuleUsers, "Users & Staff"},
		{ModulePatients, "Patients"},
		{ModuleRooms, "Rooms/Wards"},
		{ModuleBilling, "Billing"},
		{ModuleReports, "Reports"},
	},
	domain.RoleDoctor: {
		{ModuleOverview, "Overview"},
		{ModuleAppointments, "Appointments"},
		{ModulePatients, "My Patients"},
		{ModuleOPD, "OPD Consultations"},
		{ModuleOT, "OT Schedule"},
	},
	domain.RoleReceptionist: {
		{ModuleOverview, "Overview"},
		{ModuleRegistration, "Patient Registration"},
		{ModuleAppointments, "Appointments"},
		{ModuleEmergency, "Emergency Cases"},
	},
	domain.RoleAccountant: {
		{ModuleOverview, "Overview"},
		{ModuleBilling, "Billing"},
		{ModuleInvoices, "Invoices"},
		{ModulePayments, "Payments"},
		{ModuleReports, "Financial Reports"},
	},
	domain.RoleRadiologist: {
		{ModuleOverview, "Overview"},
		{ModuleTests, "Radiology Tests"},
		{ModuleReports, "Reports"},
	},
	domain.RoleNurse: {
		{ModuleOverview, "Overview"},
		{ModulePatients, "Patients"},
		{ModuleVitals, "Vital Signs"},
		{ModuleRooms, "Rooms/Wards"},
		{ModuleOT, "OT Schedule"},
	},
	domain.RolePharmacist: {
		{ModuleOverview, "Overview"},
		{ModulePrescriptions, "Prescriptions"},
		{ModuleInventory, "Medicine Inventory"},
	},
}

type moduleEntry struct {
	label   string
	allowed map[domain.Role]struct{}
}

// Router selects views and enforces module capabilities.
type Router struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	modules map[string]*moduleEntry
}

// NewRouter builds the router. Module capability sets are derived from the
// role menus, so a module is renderable exactly by the roles that list it.
func NewRouter(logger *zap.Logger, metrics *observability.Metrics) *Router {
	modules := make(map[string]*moduleEntry)
	for _, role := range domain.Roles() {
		for _, entry := range menus[role] {
			m, ok := modules[entry.ID]
			if !ok {
				m = &moduleEntry{label: entry.Label, allowed: make(map[domain.Role]struct{})}
				modules[entry.ID] = m
			}
			m.allowed[role] = struct{}{}
		}
	}
	return &Router{logger: logger, metrics: metrics, modules: modules}
}

// Select returns the view for role. Unrecognized roles get the admin view;
// the menu is display-only because Authorize grants them nothing.
func (r *Router) Select(role string) View {
	parsed, ok := domain.ParseRole(role)
	if !ok {
		r.logger.Warn("unrecognized role, using admin dashboard", zap.String("role", role))
		r.metrics.RecordRoleFallback()
		parsed = domain.RoleAdmin
	}
	return viewFor(parsed)
}

// Authorize checks that role may render moduleID.
func (r *Router) Authorize(role, moduleID string) (Module, error) {
	m, ok := r.modules[moduleID]
	if !ok {
		return Module{}, apperrors.NewNotFound("module", map[string]any{"module": moduleID})
	}

	parsed, ok := domain.ParseRole(role)
	if !ok || !r.Can(parsed, moduleID) {
		return Module{}, apperrors.NewForbidden("Your role does not have access to this module")
	}

	return r.describe(moduleID, m), nil
}

// Can reports whether role may render moduleID.
func (r *Router) Can(role domain.Role, moduleID string) bool {
	m, ok := r.modules[moduleID]
	if !ok {
		return false
	}
	_, allowed := m.allowed[role]
	return allowed
}

func (r *Router) describe(id string, m *moduleEntry) Module {
	out := Module{ID: id, Label: m.label}
	for _, role := range domain.Roles() {
		if _, ok := m.allowed[role]; ok {
			out.Roles = append(out.Roles, role)
		}
	}
	return out
}

func viewFor(role domain.Role) View {
	menu := append([]MenuEntry(nil), menus[role]...)
	return View{Role: role, DefaultModule: ModuleOverview, Menu: menu}
}
