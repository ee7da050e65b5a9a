package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/JonMunkholm/leadcrm/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Leads
// =============================================================================

func TestHandleListLeads_PassesScope(t *testing.T) {
	svc := newFakeService()
	svc.leads = []core.Lead{{ID: "l1", FullName: "Asha"}}
	s := newTestServer(t, svc, nil)

	rec := do(t, s, http.MethodGet, "/api/leads?role=relationship_mgr&user_id=u7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, core.LeadScope{Role: core.RoleRelationshipMgr, UserID: "u7"}, svc.gotScope)

	var leads []core.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &leads))
	require.Len(t, leads, 1)
	assert.Equal(t, "Asha", leads[0].FullName)
}

func TestHandleListLeads_Failure(t *testing.T) {
	svc := newFakeService()
	svc.errs["ListLeads"] = errors.New("relation \"leads\" does not exist")
	s := newTestServer(t, svc, nil)

	rec := do(t, s, http.MethodGet, "/api/leads", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch leads", decodeError(t, rec).Error)
}

func TestHandleCreateLead(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantError   string
		wantErrCode string
	}{
		{
			name:     "created",
			wantCode: http.StatusCreated,
		},
		{
			name:        "missing fields",
			err:         &core.ValidationError{Field: "email", Message: "must not be empty"},
			wantCode:    http.StatusBadRequest,
			wantError:   "Full name, email, and phone are required",
			wantErrCode: "VAL003",
		},
		{
			name:        "duplicate phone",
			err:         fmt.Errorf("create lead: %w", core.ErrDuplicatePhone),
			wantCode:    http.StatusBadRequest,
			wantError:   "Lead with this phone number already exists",
			wantErrCode: "LEAD001",
		},
		{
			name:        "store failure",
			err:         errors.New("insert lead: broken pipe"),
			wantCode:    http.StatusInternalServerError,
			wantError:   "Failed to add lead",
			wantErrCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			if tt.err != nil {
				svc.errs["CreateLead"] = tt.err
			}
			s := newTestServer(t, svc, nil)

			body := `{"fullName":"Asha","email":"asha@example.com","phone":"98765 43210","team_id":"t1"}`
			rec := do(t, s, http.MethodPost, "/api/leads?role=relationship_mgr&user_id=u7", body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			assert.Equal(t, "Asha", svc.gotLead.FullName)
			assert.Equal(t, "t1", svc.gotLead.TeamID)
			assert.Equal(t, "u7", svc.gotScope.UserID)

			if tt.err == nil {
				var lead core.Lead
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
				assert.Equal(t, "l1", lead.ID)
				return
			}
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantError, resp.Error)
			assert.Equal(t, tt.wantErrCode, resp.Code)
		})
	}
}

func TestHandleCreateLead_MalformedBody(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	rec := do(t, s, http.MethodPost, "/api/leads", `{"fullName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.gotLead.FullName)
}

func TestHandleUpdateLead(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	body := `{"fullName":"Asha","email":"a@example.com","phone":"1","status":"Contacted","age":"31","dob":""}`
	rec := do(t, s, http.MethodPut, "/api/leads/l9", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "l9", svc.gotID)
	assert.Equal(t, core.OptionalInt{Value: 31, Valid: true}, svc.gotUpdate.Age)
	assert.Equal(t, "Contacted", svc.gotUpdate.Status)
}

func TestHandleUpdateLead_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
	}{
		{"missing fields", &core.ValidationError{Field: "status", Message: "must not be empty"}, http.StatusBadRequest, "Missing required fields"},
		{"unknown lead", fmt.Errorf("update lead l9: %w", core.ErrNotFound), http.StatusNotFound, "Lead not found"},
		{"store failure", errors.New("timeout"), http.StatusInternalServerError, "Failed to update lead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.errs["UpdateLead"] = tt.err
			s := newTestServer(t, svc, nil)

			rec := do(t, s, http.MethodPut, "/api/leads/l9", `{"fullName":"A"}`)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}

func TestHandleAssignLead(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	rec := do(t, s, http.MethodPatch, "/api/leads/l3/assign", `{"assigned_to":"u5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AssignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Lead assigned successfully", resp.Message)
	require.NotNil(t, resp.Lead)
	require.NotNil(t, resp.Lead.AssignedTo)
	assert.Equal(t, "u5", *resp.Lead.AssignedTo)
	assert.Equal(t, "l3", svc.gotID)
}

func TestHandleAssignLead_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
	}{
		{"missing assignee", &core.ValidationError{Field: "assigned_to", Message: "must not be empty"}, http.StatusBadRequest, "Missing assigned_to value"},
		{"unknown lead", core.ErrNotFound, http.StatusNotFound, "Lead not found"},
		{"store failure", errors.New("conn closed"), http.StatusInternalServerError, "Failed to assign lead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.errs["AssignLead"] = tt.err
			s := newTestServer(t, svc, nil)

			rec := do(t, s, http.MethodPatch, "/api/leads/l3/assign", `{}`)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}

func TestHandleDeleteLead(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	rec := do(t, s, http.MethodDelete, "/api/leads/l4", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "l4", svc.gotID)

	svc.errs["DeleteLead"] = errors.New("boom")
	rec = do(t, s, http.MethodDelete, "/api/leads/l4", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to delete lead", decodeError(t, rec).Error)
}

// =============================================================================
// Uploads
// =============================================================================

func TestHandleUploadLeads(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	csv := "Full Name,Email,Phone\nAsha,asha@example.com,111\n"
	body, contentType := multipartUpload(t, "file", csv)
	rec := postUpload(t, s, body, contentType)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Leads uploaded successfully (duplicates skipped)", resp.Message)
	assert.Equal(t, csv, string(svc.gotCSV))
}

func TestHandleUploadLeads_NoFile(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	body, contentType := multipartUpload(t, "", "")
	rec := postUpload(t, s, body, contentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decodeError(t, rec).Error)
	assert.Zero(t, svc.imports)

	// Not multipart at all.
	rec = do(t, s, http.MethodPost, "/api/leads/upload", `{"file":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.imports)
}

func TestHandleUploadLeads_TooLarge(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, map[string]string{"UPLOAD_MAX_FILE_SIZE": "128"})

	body, contentType := multipartUpload(t, "file", strings.Repeat("a,b,c\n", 100))
	rec := postUpload(t, s, body, contentType)

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusRequestEntityTooLarge}, rec.Code)
	assert.Zero(t, svc.imports)
}

func TestHandleUploadLeads_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
	}{
		{"busy", core.ErrTooManyUploads, http.StatusServiceUnavailable, "System is busy processing other uploads"},
		{"ingestion failed", fmt.Errorf("%w: insert row 3: %w", core.ErrIngestFailed, errors.New("conn reset")), http.StatusInternalServerError, "Failed to upload leads"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.errs["ImportLeadsCSV"] = tt.err
			s := newTestServer(t, svc, nil)

			body, contentType := multipartUpload(t, "file", "Full Name\nA\n")
			rec := postUpload(t, s, body, contentType)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
			if tt.wantCode == http.StatusServiceUnavailable {
				assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestHandleUploadSheet(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc, nil)

	link := "https://docs.google.com/spreadsheets/d/abc/edit"
	rec := do(t, s, http.MethodPost, "/api/leads/upload/sheet", `{"sheetLink":"`+link+`"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, link, svc.gotLink)
}

func TestHandleUploadSheet_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantError string
	}{
		{"invalid link", core.ErrInvalidSheetLink, http.StatusBadRequest, "Invalid Google Sheets link"},
		{"unparseable link", core.ErrUnparseableSheetLink, http.StatusBadRequest, "Could not parse Google Sheets link"},
		{"fetch failed", &core.SourceError{URL: "https://x", StatusCode: 404}, http.StatusInternalServerError, "Failed to upload leads from Google Sheets"},
		{"ingestion failed", fmt.Errorf("%w: commit: %w", core.ErrIngestFailed, errors.New("x")), http.StatusInternalServerError, "Failed to upload leads from Google Sheets"},
		{"unexpected", errors.New("x"), http.StatusInternalServerError, "Failed to process Google Sheets link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.errs["ImportLeadsFromSheet"] = tt.err
			s := newTestServer(t, svc, nil)

			rec := do(t, s, http.MethodPost, "/api/leads/upload/sheet", `{"sheetLink":"x"}`)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}

// =============================================================================
// Directory
// =============================================================================

func TestDirectoryRoutes(t *testing.T) {
	tests := []struct {
		method   string
		target   string
		body     string
		wantCode int
	}{
		{http.MethodGet, "/api/users", "", http.StatusOK},
		{http.MethodPost, "/api/users", `{"displayName":"Ravi","email":"r@example.com","role":"admin","password":"pw"}`, http.StatusCreated},
		{http.MethodPut, "/api/users/u1", `{"displayName":"Ravi","email":"r@example.com","role":"admin"}`, http.StatusOK},
		{http.MethodDelete, "/api/users/u1", "", http.StatusNoContent},
		{http.MethodGet, "/api/teams", "", http.StatusOK},
		{http.MethodPost, "/api/teams", `{"name":"South"}`, http.StatusCreated},
		{http.MethodDelete, "/api/teams/t1", "", http.StatusNoContent},
		{http.MethodGet, "/api/locations", "", http.StatusOK},
		{http.MethodPost, "/api/locations", `{"name":"Delhi"}`, http.StatusCreated},
		{http.MethodDelete, "/api/locations/loc1", "", http.StatusNoContent},
	}

	s := newTestServer(t, newFakeService(), nil)
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestDirectoryRoutes_Errors(t *testing.T) {
	tests := []struct {
		method    string
		target    string
		body      string
		errKey    string
		wantError string
	}{
		{http.MethodGet, "/api/users", "", "ListUsers", "Failed to fetch users"},
		{http.MethodPost, "/api/users", `{}`, "CreateUser", "Failed to add user"},
		{http.MethodPut, "/api/users/u1", `{}`, "UpdateUser", "Failed to update user"},
		{http.MethodDelete, "/api/users/u1", "", "DeleteUser", "Failed to delete user"},
		{http.MethodGet, "/api/teams", "", "ListTeams", "Failed to fetch teams"},
		{http.MethodPost, "/api/teams", `{}`, "CreateTeam", "Failed to add team"},
		{http.MethodDelete, "/api/teams/t1", "", "DeleteTeam", "Failed to delete team"},
		{http.MethodGet, "/api/locations", "", "ListLocations", "Failed to fetch locations"},
		{http.MethodPost, "/api/locations", `{}`, "CreateLocation", "Failed to add location"},
		{http.MethodDelete, "/api/locations/loc1", "", "DeleteLocation", "Failed to delete location"},
	}

	for _, tt := range tests {
		t.Run(tt.errKey, func(t *testing.T) {
			svc := newFakeService()
			svc.errs[tt.errKey] = errors.New("pool closed")
			s := newTestServer(t, svc, nil)

			rec := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, tt.wantError, decodeError(t, rec).Error)
		})
	}
}

func TestCreateUser_ValidationIsBadRequest(t *testing.T) {
	svc := newFakeService()
	svc.errs["CreateUser"] = &core.ValidationError{Field: "email", Message: "must be a valid email address"}
	s := newTestServer(t, svc, nil)

	rec := do(t, s, http.MethodPost, "/api/users", `{"displayName":"R"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL003", decodeError(t, rec).Code)
}
