package tests

import (
	"net/http"
	"testing"
)

func TestServer_view(t *testing.T) {
	env := setup(t)

	tests := []httpTest{
		{
			name:     "home",
			method:   http.MethodGet,
			path:     "/",
			wantCode: http.StatusOK,
			wantData: []byte(`{"message": "Bienvenue sur Formation Pro !", "view": "generator"}`),
		},
		{
			name:     "to registry",
			method:   http.MethodPost,
			path:     "/v1/view/toggle/",
			wantCode: http.StatusOK,
			wantData: []byte(`{"view": "registry"}`),
		},
		{
			name:     "home on registry",
			method:   http.MethodGet,
			path:     "/",
			wantCode: http.StatusOK,
			wantData: []byte(`{"message": "Bienvenue sur Formation Pro !", "view": "registry"}`),
		},
		{
			name:     "back to generator",
			method:   http.MethodPost,
			path:     "/v1/view/toggle",
			wantCode: http.StatusOK,
			wantData: []byte(`{"view": "generator"}`),
		},
		{
			name:     "unknown route",
			method:   http.MethodGet,
			path:     "/v1/nope",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Not Found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(tt.method, tt.path, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
