package auth

import (
	"errors"
	"testing"
	"time"

	"riches/internal/game"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestLogin(t *testing.T) {
	at := fixedClock(time.UnixMilli(1_700_000_000_123))
	a := New("plutka", "123", at)

	tests := []struct {
		name    string
		creds   Credentials
		want    Identity
		wantErr error
	}{
		{name: "guest", creds: Credentials{Mode: Guest}, want: Identity{Username: "guest_1700000000123"}},
		{name: "admin", creds: Credentials{Mode: Admin, Login: "plutka", Password: "123"}, want: Identity{Username: "admin_1700000000123", IsAdmin: true}},
		{name: "admin trims login", creds: Credentials{Mode: Admin, Login: " plutka ", Password: "123"}, want: Identity{Username: "admin_1700000000123", IsAdmin: true}},
		{name: "wrong secret", creds: Credentials{Mode: Admin, Login: "plutka", Password: "1234"}, wantErr: game.ErrInvalidCredentials},
		{name: "wrong login", creds: Credentials{Mode: Admin, Login: "root", Password: "123"}, wantErr: game.ErrInvalidCredentials},
		{name: "resume", creds: Credentials{Mode: Resume, Username: "guest_42"}, want: Identity{Username: "guest_42"}},
		{name: "resume admin", creds: Credentials{Mode: Resume, Username: "admin_1", IsAdmin: true}, want: Identity{Username: "admin_1", IsAdmin: true}},
		{name: "resume empty", creds: Credentials{Mode: Resume}, wantErr: game.ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Login(tc.creds)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err=%v want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}
