package permissions

import (
	"testing"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	admin, emily, sarah   *models.User
	jessica, maria, loner *models.User
	p1, p2                models.Program
	programs              []models.Program
}

func newFixture() fixture {
	f := fixture{
		admin:   &models.User{ID: primitive.NewObjectID(), Name: "Admin", Role: models.RoleAdmin},
		emily:   &models.User{ID: primitive.NewObjectID(), Name: "Emily", Role: models.RoleProgramManager},
		sarah:   &models.User{ID: primitive.NewObjectID(), Name: "Sarah", Role: models.RoleProgramManager},
		jessica: &models.User{ID: primitive.NewObjectID(), Name: "Jessica", Role: models.RoleParticipant},
		maria:   &models.User{ID: primitive.NewObjectID(), Name: "Maria", Role: models.RoleParticipant},
		loner:   &models.User{ID: primitive.NewObjectID(), Name: "Loner", Role: models.RoleParticipant},
	}
	f.p1 = models.Program{
		ID:             primitive.NewObjectID(),
		Name:           "Spring Cohort",
		ManagerIDs:     []primitive.ObjectID{f.emily.ID},
		ParticipantIDs: []primitive.ObjectID{f.jessica.ID},
	}
	f.p2 = models.Program{
		ID:             primitive.NewObjectID(),
		Name:           "Fall Cohort",
		ManagerIDs:     []primitive.ObjectID{f.sarah.ID},
		ParticipantIDs: []primitive.ObjectID{f.maria.ID},
	}
	f.emily.ManagedProgramIDs = []primitive.ObjectID{f.p1.ID}
	f.sarah.ManagedProgramIDs = []primitive.ObjectID{f.p2.ID}
	f.jessica.ProgramIDs = []primitive.ObjectID{f.p1.ID}
	f.maria.ProgramIDs = []primitive.ObjectID{f.p2.ID}
	f.programs = []models.Program{f.p1, f.p2}
	return f
}

func TestSelfAccessAlwaysAllowed(t *testing.T) {
	f := newFixture()
	for _, u := range []*models.User{f.admin, f.emily, f.jessica, f.loner} {
		assert.True(t, CanViewFinancialData(u, u.ID, nil), u.Name)
		assert.True(t, CanEditFinancialData(u, u.ID, nil), u.Name)
		assert.True(t, CanViewMilestones(u, u.ID, nil), u.Name)
	}
}

func TestManagerAccessIsProgramScoped(t *testing.T) {
	f := newFixture()

	assert.True(t, CanAssignMilestones(f.emily, f.jessica.ID, f.programs))
	assert.True(t, CanViewFinancialData(f.emily, f.jessica.ID, f.programs))

	// Emily manages P1 only; Maria is enrolled only in P2.
	assert.False(t, CanAssignMilestones(f.emily, f.maria.ID, f.programs))
	assert.False(t, CanEditFinancialData(f.emily, f.maria.ID, f.programs))
}

func TestParticipantWithoutProgramsOnlyReachableByAdmin(t *testing.T) {
	f := newFixture()

	assert.True(t, CanViewFinancialData(f.admin, f.loner.ID, f.programs))
	assert.False(t, CanViewFinancialData(f.emily, f.loner.ID, f.programs))
	assert.False(t, CanViewFinancialData(f.sarah, f.loner.ID, f.programs))
	assert.False(t, CanViewFinancialData(f.jessica, f.loner.ID, f.programs))
}

func TestParticipantsCannotReachEachOther(t *testing.T) {
	f := newFixture()
	shared := []models.Program{{
		ID:             primitive.NewObjectID(),
		ParticipantIDs: []primitive.ObjectID{f.jessica.ID, f.maria.ID},
	}}
	assert.False(t, CanViewMilestones(f.jessica, f.maria.ID, shared))
}

func TestCanManageProgram(t *testing.T) {
	f := newFixture()

	assert.True(t, CanManageProgram(f.admin, f.p1.ID))
	assert.True(t, CanManageProgram(f.admin, f.p2.ID))
	assert.True(t, CanManageProgram(f.emily, f.p1.ID))
	assert.False(t, CanManageProgram(f.emily, f.p2.ID))
	assert.False(t, CanManageProgram(f.jessica, f.p1.ID))

	// A participant listing a program id in ManagedProgramIDs still cannot manage it.
	sneaky := &models.User{ID: primitive.NewObjectID(), Role: models.RoleParticipant,
		ManagedProgramIDs: []primitive.ObjectID{f.p1.ID}}
	assert.False(t, CanManageProgram(sneaky, f.p1.ID))
}

func TestCreateProgramIsAdminOnly(t *testing.T) {
	f := newFixture()

	assert.True(t, CanCreateProgram(f.admin))
	assert.False(t, CanCreateProgram(f.emily))
	assert.False(t, CanCreateProgram(f.jessica))
	assert.False(t, CanAssignProgramManagers(f.emily))
}

func TestCanProvideFeedback(t *testing.T) {
	f := newFixture()

	assert.True(t, CanProvideFeedback(f.admin, f.maria.ID, f.programs))
	assert.True(t, CanProvideFeedback(f.emily, f.jessica.ID, f.programs))
	assert.False(t, CanProvideFeedback(f.emily, f.maria.ID, f.programs))
	assert.False(t, CanProvideFeedback(f.jessica, f.jessica.ID, f.programs))
}

func TestCanExportData(t *testing.T) {
	f := newFixture()
	p1, p2 := f.p1.ID, f.p2.ID
	self := f.jessica.ID

	assert.True(t, CanExportData(f.admin, nil, nil))
	assert.True(t, CanExportData(f.emily, &p1, nil))
	assert.False(t, CanExportData(f.emily, &p2, nil))
	assert.False(t, CanExportData(f.emily, nil, nil))
	assert.True(t, CanExportData(f.jessica, nil, &self))
	assert.False(t, CanExportData(f.jessica, &p1, &self))
	assert.False(t, CanExportData(f.jessica, nil, &f.maria.ID))
}

func TestCanViewAuditLog(t *testing.T) {
	f := newFixture()
	p1, p2 := f.p1.ID, f.p2.ID

	assert.True(t, CanViewAuditLog(f.admin, AuditScope{}))
	assert.True(t, CanViewAuditLog(f.emily, AuditScope{ProgramID: &p1}))
	assert.False(t, CanViewAuditLog(f.emily, AuditScope{ProgramID: &p2}))
	assert.False(t, CanViewAuditLog(f.emily, AuditScope{}))
	assert.True(t, CanViewAuditLog(f.jessica, AuditScope{UserID: &f.jessica.ID}))
	assert.False(t, CanViewAuditLog(f.jessica, AuditScope{UserID: &f.maria.ID}))
}

func TestSharedPrograms(t *testing.T) {
	f := newFixture()
	both := models.Program{
		ID:             primitive.NewObjectID(),
		ManagerIDs:     []primitive.ObjectID{f.emily.ID},
		ParticipantIDs: []primitive.ObjectID{f.jessica.ID},
	}
	ids := SharedPrograms(f.emily.ID, f.jessica.ID, append(f.programs, both))
	assert.ElementsMatch(t, []primitive.ObjectID{f.p1.ID, both.ID}, ids)
	assert.Empty(t, SharedPrograms(f.emily.ID, f.maria.ID, f.programs))
}

func TestNilActorIsDenied(t *testing.T) {
	f := newFixture()
	assert.False(t, CanViewFinancialData(nil, f.jessica.ID, f.programs))
	assert.False(t, CanManageProgram(nil, f.p1.ID))
	assert.False(t, CanExportData(nil, nil, nil))
}
