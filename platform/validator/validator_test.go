package validator

import "testing"

type paperRequest struct {
	Level    int      `json:"level" validate:"min=100,max=900,hundreds"`
	Semester string   `json:"semester" validate:"semester"`
	Title    string   `json:"title" validate:"notblank,min=5"`
	Hashtags []string `json:"hashtags" validate:"max=10,dive,max=30"`
}

func TestCustomRules(t *testing.T) {
	val := New()

	cases := []struct {
		name  string
		req   paperRequest
		field string
		rule  string
	}{
		{"valid", paperRequest{Level: 300, Semester: "LVS", Title: "CSC 201 past paper"}, "", ""},
		{"level not multiple", paperRequest{Level: 250, Semester: "First", Title: "CSC 201 past paper"}, "level", "hundreds"},
		{"level too high", paperRequest{Level: 1000, Semester: "First", Title: "CSC 201 past paper"}, "level", "max"},
		{"semester unknown", paperRequest{Level: 100, Semester: "Third", Title: "CSC 201 past paper"}, "semester", "semester"},
		{"blank title", paperRequest{Level: 100, Semester: "Second", Title: "       "}, "title", "notblank"},
		{"long hashtag", paperRequest{Level: 100, Semester: "Second", Title: "CSC 201 past paper", Hashtags: []string{"0123456789012345678901234567890"}}, "hashtags[0]", "max"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := val.Struct(tc.req)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("expected valid request, got %v", err)
				}
				return
			}
			fields := Fields(err)
			if len(fields) == 0 {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
			if fields[0].Field != tc.field || fields[0].Rule != tc.rule {
				t.Fatalf("expected %s/%s, got %+v", tc.field, tc.rule, fields[0])
			}
		})
	}
}

func TestFieldsIgnoresOtherErrors(t *testing.T) {
	if Fields(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}
