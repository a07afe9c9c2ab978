package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes groups every handler of the API. Authenticate must establish the actor
// (AuthMiddleware followed by ActorMiddleware in production). LoginLimit, when set,
// throttles the credential endpoints.
type Routes struct {
	Users         *UserHandler
	Programs      *ProgramHandler
	Milestones    *MilestoneHandler
	Cycles        *CycleHandler
	Notifications *NotificationHandler
	Templates     *TemplateHandler
	Audit         *AuditHandler
	Export        *ExportHandler
	Receipts      *ReceiptHandler
	Stream        *StreamHandler
	Uploads       http.Handler

	Authenticate []mux.MiddlewareFunc
	LoginLimit   mux.MiddlewareFunc
}

// Register mounts the API on router.
func (rt *Routes) Register(router *mux.Router) {
	router.Handle("/users/register", rt.limited(rt.Users.RegisterUserHandler)).Methods("POST")
	router.Handle("/users/login", rt.limited(rt.Users.LoginUserHandler)).Methods("POST")
	router.HandleFunc("/invites/{code}", rt.Programs.CheckInviteHandler).Methods("GET")

	api := router.NewRoute().Subrouter()
	api.Use(rt.Authenticate...)

	// Users
	api.HandleFunc("/users/me", rt.Users.MeHandler).Methods("GET")
	api.HandleFunc("/users/me", rt.Users.UpdateProfileHandler).Methods("PATCH")
	api.HandleFunc("/users/lookup", rt.Users.LookupUserHandler).Methods("GET")
	api.HandleFunc("/users", rt.Users.ListUsersHandler).Methods("GET")
	api.HandleFunc("/users", rt.Users.CreateUserHandler).Methods("POST")
	api.HandleFunc("/users/{id}", rt.Users.GetUserHandler).Methods("GET")
	api.HandleFunc("/users/{id}/milestones", rt.Milestones.GetUserMilestonesHandler).Methods("GET")
	api.HandleFunc("/users/{id}/cycles", rt.Cycles.GetCyclesHandler).Methods("GET")
	api.HandleFunc("/users/{id}/cycles", rt.Cycles.StartCycleHandler).Methods("POST")
	api.HandleFunc("/users/{id}/cycles/active", rt.Cycles.GetActiveCycleHandler).Methods("GET")

	// Programs
	api.HandleFunc("/programs", rt.Programs.CreateProgramHandler).Methods("POST")
	api.HandleFunc("/programs", rt.Programs.ListProgramsHandler).Methods("GET")
	api.HandleFunc("/programs/{id}", rt.Programs.GetProgramHandler).Methods("GET")
	api.HandleFunc("/programs/{id}", rt.Programs.UpdateProgramHandler).Methods("PUT")
	api.HandleFunc("/programs/{id}/archive", rt.Programs.ArchiveProgramHandler).Methods("POST")
	api.HandleFunc("/programs/{id}/managers/{userId}", rt.Programs.AssignManagerHandler).Methods("POST")
	api.HandleFunc("/programs/{id}/managers/{userId}", rt.Programs.RemoveManagerHandler).Methods("DELETE")
	api.HandleFunc("/programs/{id}/participants", rt.Programs.AddParticipantHandler).Methods("POST")
	api.HandleFunc("/programs/{id}/participants/{userId}", rt.Programs.RemoveParticipantHandler).Methods("DELETE")
	api.HandleFunc("/programs/{id}/roster", rt.Programs.RosterHandler).Methods("GET")
	api.HandleFunc("/programs/{id}/declines", rt.Programs.PendingDeclinesHandler).Methods("GET")

	// Milestones
	api.HandleFunc("/milestones", rt.Milestones.CreateMilestoneHandler).Methods("POST")
	api.HandleFunc("/milestones/assign", rt.Milestones.AssignMilestoneHandler).Methods("POST")
	api.HandleFunc("/milestones/{id}", rt.Milestones.GetMilestoneHandler).Methods("GET")
	api.HandleFunc("/milestones/{id}", rt.Milestones.UpdateMilestoneHandler).Methods("PUT")
	api.HandleFunc("/milestones/{id}", rt.Milestones.DeleteMilestoneHandler).Methods("DELETE")
	api.HandleFunc("/milestones/{id}/status", rt.Milestones.UpdateStatusHandler).Methods("PATCH")
	api.HandleFunc("/milestones/{id}/accept", rt.Milestones.AcceptMilestoneHandler).Methods("POST")
	api.HandleFunc("/milestones/{id}/decline", rt.Milestones.DeclineMilestoneHandler).Methods("POST")
	api.HandleFunc("/milestones/{id}/decline-response", rt.Milestones.RespondToDeclineHandler).Methods("POST")
	api.HandleFunc("/milestones/{id}/reports", rt.Milestones.SubmitReportHandler).Methods("POST")
	api.HandleFunc("/milestones/{id}/reports/{week}/feedback", rt.Milestones.FeedbackHandler).Methods("POST")

	// Balance sheets
	api.HandleFunc("/cycles/{id}", rt.Cycles.GetCycleHandler).Methods("GET")
	api.HandleFunc("/cycles/{id}", rt.Cycles.DeleteCycleHandler).Methods("DELETE")
	api.HandleFunc("/cycles/{id}/expenses", rt.Cycles.AddExpenseHandler).Methods("POST")
	api.HandleFunc("/cycles/{id}/expenses/{expenseId}", rt.Cycles.EditExpenseHandler).Methods("PUT")
	api.HandleFunc("/cycles/{id}/expenses/{expenseId}", rt.Cycles.DeleteExpenseHandler).Methods("DELETE")
	if rt.Receipts != nil {
		api.HandleFunc("/receipts", rt.Receipts.UploadReceiptHandler).Methods("POST")
	}

	// Notifications
	api.HandleFunc("/notifications", rt.Notifications.GetUserNotificationsHandler).Methods("GET")
	api.HandleFunc("/notifications/unread-count", rt.Notifications.UnreadCountHandler).Methods("GET")
	if rt.Stream != nil {
		api.HandleFunc("/notifications/stream", rt.Stream.NotificationStreamHandler).Methods("GET")
	}
	api.HandleFunc("/notifications/read-all", rt.Notifications.MarkAllAsReadHandler).Methods("POST")
	api.HandleFunc("/notifications/deadlines/check", rt.Notifications.CheckDeadlinesHandler).Methods("POST")
	api.HandleFunc("/notifications/{id}/read", rt.Notifications.MarkAsReadHandler).Methods("POST")
	api.HandleFunc("/notifications/{id}", rt.Notifications.DeleteNotificationHandler).Methods("DELETE")
	if rt.Uploads != nil {
		api.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", rt.Uploads)).Methods("GET")
	}

	// Templates, audit and export
	api.HandleFunc("/templates", rt.Templates.CreateTemplateHandler).Methods("POST")
	api.HandleFunc("/templates", rt.Templates.GetTemplatesHandler).Methods("GET")
	api.HandleFunc("/templates/{id}", rt.Templates.GetTemplateByIDHandler).Methods("GET")
	api.HandleFunc("/audit", rt.Audit.GetAuditLogHandler).Methods("GET")
	api.HandleFunc("/export", rt.Export.ExportHandler).Methods("GET")
}

func (rt *Routes) limited(h http.HandlerFunc) http.Handler {
	if rt.LoginLimit == nil {
		return h
	}
	return rt.LoginLimit(h)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
