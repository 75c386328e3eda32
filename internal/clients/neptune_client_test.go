package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"

	"neptunecharge/internal/models"
)

var testSession = models.Session{OpenID: "oABC-123", AreaID: 42}

type recordedRequest struct {
	path    string
	form    url.Values
	headers http.Header
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, path string, form url.Values)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		requests = append(requests, recordedRequest{path: r.URL.Path, form: r.PostForm, headers: r.Header.Clone()})
		w.Header().Set("Content-Type", "application/json")
		handler(w, r.URL.Path, r.PostForm)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newClient(srv *httptest.Server, timeout time.Duration) *NeptuneClient {
	return NewNeptuneClient(srv.URL, "test-agent/1.0", testSession, NewDefaultHTTPClient(timeout), zap.NewNop())
}

func TestGetUserInfoSendsFormAndHeaders(t *testing.T) {
	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ string, _ url.Values) {
		_, _ = w.Write([]byte(`{"success":true,"msg":"","obj":{"employeeid":"E-9","readyaccountmoney":1530}}`))
	})

	account, err := newClient(srv, time.Second).GetUserInfo(context.Background(), testSession)
	if err != nil {
		t.Fatalf("get user info: %v", err)
	}
	if account == nil || account.EmployeeID != "E-9" || account.ReadyAccountMoney != 1530 {
		t.Fatalf("unexpected account %+v", account)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.path != "/wxn/getUserInfo" {
		t.Fatalf("unexpected path %s", req.path)
	}
	if req.form.Get("openId") != "oABC-123" || req.form.Get("areaId") != "42" {
		t.Fatalf("unexpected form %v", req.form)
	}
	if got := req.headers.Get("Content-Type"); got != "application/x-www-form-urlencoded; charset=UTF-8" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := req.headers.Get("User-Agent"); got != "test-agent/1.0" {
		t.Fatalf("unexpected user agent %q", got)
	}
	if got := req.headers.Get("Origin"); got != srv.URL {
		t.Fatalf("unexpected origin %q", got)
	}
	if got := req.headers.Get("Referer"); got != srv.URL+"/wx/indexn.html?openId=oABC-123&areaid=42" {
		t.Fatalf("unexpected referer %q", got)
	}
}

func TestGetUserInfoUnsuccessful(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ string, _ url.Values) {
		_, _ = w.Write([]byte(`{"success":false,"msg":"user not found","obj":null}`))
	})

	account, err := newClient(srv, time.Second).GetUserInfo(context.Background(), testSession)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if account != nil {
		t.Fatalf("expected nil account, got %+v", account)
	}
}

func TestGetDeviceInfo(t *testing.T) {
	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ string, _ url.Values) {
		_, _ = w.Write([]byte(`{"success":true,"obj":{"devdescript":"Block 3","workTime":"06:00-23:00","portstatur":"0010","efee":120}}`))
	})

	device, err := newClient(srv, time.Second).GetDeviceInfo(context.Background(), testSession, "50559141")
	if err != nil {
		t.Fatalf("get device info: %v", err)
	}
	if device.PortStatus != "0010" || device.DevDescript != "Block 3" {
		t.Fatalf("unexpected device %+v", device)
	}
	if v, ok := device.Efee.Get(); !ok || v != "120" {
		t.Fatalf("unexpected efee %q %v", v, ok)
	}
	req := (*requests)[0]
	if req.path != "/wxn/getDeviceInfo" || req.form.Get("devaddress") != "50559141" || req.form.Get("areaId") != "42" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.form.Has("openId") {
		t.Fatalf("device query must not send openId")
	}
}

func TestGetDeviceInfoMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>upstream down</html>"))
	}))
	t.Cleanup(srv.Close)

	_, err := newClient(srv, time.Second).GetDeviceInfo(context.Background(), testSession, "1")
	if !errors.Is(err, models.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("malformed body must not be reported as transport error")
	}
}

func TestSuccessWithoutObjIsMalformed(t *testing.T) {
	srv, _ := newTestServer(t, func(w http.ResponseWriter, _ string, _ url.Values) {
		_, _ = w.Write([]byte(`{"success":true,"msg":"ok"}`))
	})

	_, err := newClient(srv, time.Second).GetUserInfo(context.Background(), testSession)
	if !errors.Is(err, models.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := newClient(srv, 50*time.Millisecond).GetDeviceInfo(context.Background(), testSession, "1")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Path != "/wxn/getDeviceInfo" {
		t.Fatalf("expected TransportError for device path, got %v", err)
	}
}

func TestBeginChargeReturnsEnvelope(t *testing.T) {
	srv, requests := newTestServer(t, func(w http.ResponseWriter, _ string, form url.Values) {
		_, _ = w.Write([]byte(`{"success":true,"msg":"","obj":"TOK123"}`))
	})

	form := url.Values{"devaddress": {"50559141"}, "port": {"11"}}
	env, err := newClient(srv, time.Second).BeginCharge(context.Background(), form)
	if err != nil {
		t.Fatalf("begin charge: %v", err)
	}
	if !env.Success || env.Token() != "TOK123" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if (*requests)[0].path != "/wxn/beginCharge" || (*requests)[0].form.Get("port") != "11" {
		t.Fatalf("unexpected request %+v", (*requests)[0])
	}
}
