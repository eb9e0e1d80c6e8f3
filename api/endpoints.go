package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Empty is the payload type of operations whose data the caller ignores.
type Empty struct{}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) Response[LoginData] {
	body := map[string]string{"username": username, "password": password}
	return call[LoginData](ctx, c, request{method: http.MethodPost, path: "/auth/login", body: body})
}

// GetSession fetches the profile for token. A rejection means the token is no longer valid.
func (c *Client) GetSession(ctx context.Context, token string) Response[Profile] {
	return call[Profile](ctx, c, request{method: http.MethodGet, path: "/auth/session", token: token})
}

// Logout invalidates token on the backend.
func (c *Client) Logout(ctx context.Context, token string) Response[Empty] {
	return call[Empty](ctx, c, request{method: http.MethodPost, path: "/auth/logout", token: token})
}

func (c *Client) RegisterStudent(ctx context.Context, in StudentRegistration) Response[Profile] {
	return call[Profile](ctx, c, request{method: http.MethodPost, path: "/students/register", body: in})
}

func (c *Client) RegisterAdvisor(ctx context.Context, in AdvisorRegistration) Response[Profile] {
	return call[Profile](ctx, c, request{method: http.MethodPost, path: "/advisors/register", body: in})
}

func (c *Client) UpdateStudentProfile(ctx context.Context, token string, in StudentProfileUpdate) Response[Profile] {
	return call[Profile](ctx, c, request{method: http.MethodPut, path: "/students/profile", token: token, body: in})
}

func (c *Client) UpdateAdvisorProfile(ctx context.Context, token string, in AdvisorProfileUpdate) Response[Profile] {
	return call[Profile](ctx, c, request{method: http.MethodPut, path: "/advisors/profile", token: token, body: in})
}

// GetStases lists rotation stations. token may be empty during registration.
func (c *Client) GetStases(ctx context.Context, token string) Response[[]Stase] {
	return call[[]Stase](ctx, c, request{method: http.MethodGet, path: "/staces", token: token})
}

// GetGroups lists student cohorts. token may be empty during registration.
func (c *Client) GetGroups(ctx context.Context, token string) Response[[]Group] {
	return call[[]Group](ctx, c, request{method: http.MethodGet, path: "/groups", token: token})
}

func (c *Client) GetActivities(ctx context.Context, token string) Response[[]Activity] {
	return call[[]Activity](ctx, c, request{method: http.MethodGet, path: "/activities", token: token})
}

func (c *Client) CreateActivity(ctx context.Context, token string, in ActivityInput) Response[Activity] {
	return call[Activity](ctx, c, request{method: http.MethodPost, path: "/activities", token: token, body: in})
}

func (c *Client) UpdateActivity(ctx context.Context, token string, id int64, in ActivityInput) Response[Activity] {
	return call[Activity](ctx, c, request{method: http.MethodPut, path: "/activities/" + idPath(id), token: token, body: in})
}

func (c *Client) DeleteActivity(ctx context.Context, token string, id int64) Response[Empty] {
	return call[Empty](ctx, c, request{method: http.MethodDelete, path: "/activities/" + idPath(id), token: token})
}

func (c *Client) GetClinicAdvisors(ctx context.Context, token string) Response[[]ClinicAdvisor] {
	return call[[]ClinicAdvisor](ctx, c, request{method: http.MethodGet, path: "/advisors/clinic", token: token})
}

// CheckIn uploads arrival evidence as multipart form data.
func (c *Client) CheckIn(ctx context.Context, token string, in CheckInForm) Response[LogbookEntry] {
	form := c.evidenceForm(in.ActivityID, in.Location, in.Photo, in.At)
	return call[LogbookEntry](ctx, c, request{method: http.MethodPost, path: "/logbooks/check-in", token: token, form: form})
}

// CheckOut uploads departure evidence for an earlier check-in.
func (c *Client) CheckOut(ctx context.Context, token string, checkInID int64, in CheckOutForm) Response[LogbookEntry] {
	form := c.evidenceForm(in.ActivityID, in.Location, in.Photo, in.At)
	form.add("description", in.Description)
	path := "/logbooks/" + idPath(checkInID) + "/check-out"
	return call[LogbookEntry](ctx, c, request{method: http.MethodPost, path: path, token: token, form: form})
}

func (c *Client) GetStudentLogbooks(ctx context.Context, token string) Response[[]LogbookEntry] {
	return call[[]LogbookEntry](ctx, c, request{method: http.MethodGet, path: "/logbooks/student", token: token})
}

func (c *Client) GetLogbookDetails(ctx context.Context, token string, checkInID int64) Response[LogbookDetails] {
	return call[LogbookDetails](ctx, c, request{method: http.MethodGet, path: "/logbooks/" + idPath(checkInID), token: token})
}

// VerifyLogbook records an advisor's decision on a visit.
func (c *Client) VerifyLogbook(ctx context.Context, token string, checkInID int64, in Verification) Response[LogbookEntry] {
	path := "/logbooks/" + idPath(checkInID) + "/verify"
	return call[LogbookEntry](ctx, c, request{method: http.MethodPut, path: path, token: token, body: in})
}

func (c *Client) GetStatistics(ctx context.Context, token string) Response[Statistics] {
	return call[Statistics](ctx, c, request{method: http.MethodGet, path: "/statistics", token: token})
}

func (c *Client) GetFiles(ctx context.Context, token string) Response[[]FileInfo] {
	return call[[]FileInfo](ctx, c, request{method: http.MethodGet, path: "/files", token: token})
}

// FileDownloadURL returns the absolute URL of a guide document.
func (c *Client) FileDownloadURL(id int64) string {
	return c.endpoint("/files/" + idPath(id) + "/download")
}

// DownloadFile streams a guide document into w. The body is not an envelope, so only
// the status code and transport outcome are normalized.
func (c *Client) DownloadFile(ctx context.Context, token string, id int64, w io.Writer) Response[int64] {
	if ctx == nil {
		ctx = context.Background()
	}
	req := request{method: http.MethodGet, path: "/files/" + idPath(id) + "/download", token: token}
	silent := IsSilent(ctx)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newHTTPRequest(callCtx, req)
	if err != nil {
		res := failure[int64](KindInvalidRequest, 0, err.Error())
		c.logFailure(silent, req, res)
		return res
	}
	httpReq.Header.Set("Accept", "*/*")
	requestID := httpReq.Header.Get(requestIDHeader)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		res := transportFailure[int64](ctx, err)
		res.RequestID = requestID
		c.logFailure(silent, req, res)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		res := decodeEnvelope[int64](resp.StatusCode, body)
		if res.Kind == KindMalformed {
			res = failure[int64](KindRejected, resp.StatusCode, defaultStatusMessage(resp.StatusCode))
		}
		res.RequestID = requestID
		c.logFailure(silent, req, res)
		return res
	}

	dst := &sinkWriter{w: w}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		var res Response[int64]
		if dst.err != nil {
			res = failure[int64](KindInvalidRequest, resp.StatusCode, fmt.Sprintf("Write download failed: %v", dst.err))
		} else {
			res = transportFailure[int64](ctx, err)
			res.Status = resp.StatusCode
		}
		res.RequestID = requestID
		c.logFailure(silent, req, res)
		return res
	}
	return Response[int64]{Success: true, Data: n, Status: resp.StatusCode, RequestID: requestID}
}

// sinkWriter remembers write errors so they are not reported as network failures.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
