package despertador_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bsid.es/despertador"
	"bsid.es/despertador/mem"
)

func newManager(tb testing.TB, settings despertador.Settings) *despertador.Manager {
	tb.Helper()
	m := despertador.NewManager(settings)
	m.Logger = discard
	if err := m.Init(); err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() { m.Close() })
	return m
}

func TestManagerNotInitialized(t *testing.T) {
	m := despertador.NewManager(mem.NewSettings())
	m.Logger = discard

	calls := map[string]func() error{
		"CreateAlarm": func() error {
			_, err := m.CreateAlarm("07:00", "x", false, despertador.NoDays)
			return err
		},
		"DeleteAlarm":   func() error { return m.DeleteAlarm(1) },
		"ModifyAlarm":   func() error { return m.ModifyAlarm(1, despertador.Update{}) },
		"ModifyTime":    func() error { return m.ModifyTime(1, "08:00") },
		"ModifyMessage": func() error { return m.ModifyMessage(1, "y") },
		"ModifyRepeat":  func() error { return m.ModifyRepeat(1, true, despertador.EveryDay) },
		"SetEnabled":    func() error { return m.SetEnabled(1, false) },
		"PeriodicCheck": func() error { return m.PeriodicCheck(context.Background()) },
		"Alarm": func() error {
			_, err := m.Alarm(1)
			return err
		},
		"Count": func() error {
			_, err := m.Count()
			return err
		},
		"List": func() error {
			_, err := m.List()
			return err
		},
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if got, want := despertador.ErrorCode(call()), despertador.ErrNotInitialized; got != want {
				t.Errorf("wrong error code\ngot:  %s\nwant: %s", got, want)
			}
		})
	}
}

func TestManagerInitTwice(t *testing.T) {
	m := newManager(t, mem.NewSettings())
	if got, want := despertador.ErrorCode(m.Init()), despertador.ErrInvalid; got != want {
		t.Errorf("wrong error code\ngot:  %s\nwant: %s", got, want)
	}
}

func TestManagerCloseThenInit(t *testing.T) {
	settings := mem.NewSettings()
	m := newManager(t, settings)
	if _, err := m.CreateAlarm("07:00", "persisted", false, despertador.NoDays); err != nil {
		t.Fatal(err)
	}
	m.Close()
	if _, err := m.Count(); despertador.ErrorCode(err) != despertador.ErrNotInitialized {
		t.Fatalf("closed manager still usable: %v", err)
	}
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	a, err := m.Alarm(1)
	if err != nil {
		t.Fatal(err)
	}
	if a.Message != "persisted" {
		t.Errorf("wrong message after reinit\ngot:  %q\nwant: %q", a.Message, "persisted")
	}
}

func TestManagerPersistsEveryMutation(t *testing.T) {
	settings := mem.NewSettings()
	m := newManager(t, settings)

	steps := []struct {
		name      string
		do        func() error
		wantCount string
		wantNext  string
		wantInfo  string
	}{
		{
			name: "create first",
			do: func() error {
				_, err := m.CreateAlarm("06:00", "A", false, despertador.NoDays)
				return err
			},
			wantCount: "1",
			wantNext:  "2",
			wantInfo:  `{"Alarm":[{"id":1,"time":"06:00","message":"A","enabled":true,"repeat":false,"days_of_week":0}]}`,
		},
		{
			name: "create second",
			do: func() error {
				_, err := m.CreateAlarm("07:00", "B", true, despertador.Weekend)
				return err
			},
			wantCount: "2",
			wantNext:  "3",
			wantInfo: `{"Alarm":[{"id":1,"time":"06:00","message":"A","enabled":true,"repeat":false,"days_of_week":0},` +
				`{"id":2,"time":"07:00","message":"B","enabled":true,"repeat":true,"days_of_week":65}]}`,
		},
		{
			name:      "disable first",
			do:        func() error { return m.SetEnabled(1, false) },
			wantCount: "2",
			wantNext:  "3",
			wantInfo: `{"Alarm":[{"id":1,"time":"06:00","message":"A","enabled":false,"repeat":false,"days_of_week":0},` +
				`{"id":2,"time":"07:00","message":"B","enabled":true,"repeat":true,"days_of_week":65}]}`,
		},
		{
			name:      "delete first",
			do:        func() error { return m.DeleteAlarm(1) },
			wantCount: "1",
			wantNext:  "2",
			wantInfo:  `{"Alarm":[{"id":1,"time":"07:00","message":"B","enabled":true,"repeat":true,"days_of_week":65}]}`,
		},
		{
			name:      "modify time",
			do:        func() error { return m.ModifyTime(1, "07:45") },
			wantCount: "1",
			wantNext:  "2",
			wantInfo:  `{"Alarm":[{"id":1,"time":"07:45","message":"B","enabled":true,"repeat":true,"days_of_week":65}]}`,
		},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := mustGet(t, settings, despertador.KeyCount); got != step.wantCount {
			t.Errorf("%s: wrong count\ngot:  %s\nwant: %s", step.name, got, step.wantCount)
		}
		if got := mustGet(t, settings, despertador.KeyNextID); got != step.wantNext {
			t.Errorf("%s: wrong next id\ngot:  %s\nwant: %s", step.name, got, step.wantNext)
		}
		if got := mustGet(t, settings, despertador.KeyAlarmInfo); got != step.wantInfo {
			t.Errorf("%s: wrong alarm info\ngot:  %s\nwant: %s", step.name, got, step.wantInfo)
		}
		if got := mustGet(t, settings, despertador.KeyEnable); got != "true" {
			t.Errorf("%s: wrong enable\ngot:  %s\nwant: true", step.name, got)
		}
	}
}

func TestManagerCapacityExceeded(t *testing.T) {
	m := newManager(t, mem.NewSettings())
	for i := 0; i < despertador.MaxAlarms; i++ {
		if _, err := m.CreateAlarm("07:00", "", false, despertador.NoDays); err != nil {
			t.Fatal(err)
		}
	}
	_, err := m.CreateAlarm("08:00", "eleventh", false, despertador.NoDays)
	if got, want := despertador.ErrorCode(err), despertador.ErrCapacity; got != want {
		t.Errorf("wrong error code\ngot:  %s\nwant: %s", got, want)
	}
	if n, _ := m.Count(); n != despertador.MaxAlarms {
		t.Errorf("wrong count\ngot:  %d\nwant: %d", n, despertador.MaxAlarms)
	}
}

func TestManagerNotFound(t *testing.T) {
	m := newManager(t, mem.NewSettings())
	if _, err := m.CreateAlarm("07:00", "only", false, despertador.NoDays); err != nil {
		t.Fatal(err)
	}
	for _, id := range []int{0, 2, -1} {
		if got := despertador.ErrorCode(m.DeleteAlarm(id)); got != despertador.ErrNotFound {
			t.Errorf("DeleteAlarm(%d): wrong error code\ngot:  %s\nwant: %s", id, got, despertador.ErrNotFound)
		}
		if got := despertador.ErrorCode(m.SetEnabled(id, false)); got != despertador.ErrNotFound {
			t.Errorf("SetEnabled(%d): wrong error code\ngot:  %s\nwant: %s", id, got, despertador.ErrNotFound)
		}
		if _, err := m.Alarm(id); despertador.ErrorCode(err) != despertador.ErrNotFound {
			t.Errorf("Alarm(%d): wrong error code\ngot:  %s\nwant: %s", id, despertador.ErrorCode(err), despertador.ErrNotFound)
		}
	}
}

func TestManagerSaveFailureKeepsState(t *testing.T) {
	settings := mem.NewSettings()
	m := newManager(t, settings)
	if _, err := m.CreateAlarm("07:00", "kept", false, despertador.NoDays); err != nil {
		t.Fatal(err)
	}
	before, _ := m.List()
	info := mustGet(t, settings, despertador.KeyAlarmInfo)

	settings.Err = errors.New("flash write failed")
	failing := map[string]func() error{
		"create": func() error {
			_, err := m.CreateAlarm("08:00", "lost", false, despertador.NoDays)
			return err
		},
		"delete":  func() error { return m.DeleteAlarm(1) },
		"modify":  func() error { return m.ModifyMessage(1, "changed") },
		"disable": func() error { return m.SetEnabled(1, false) },
	}
	for name, call := range failing {
		if got, want := despertador.ErrorCode(call()), despertador.ErrInternal; got != want {
			t.Errorf("%s: wrong error code\ngot:  %s\nwant: %s", name, got, want)
		}
	}

	after, _ := m.List()
	if !reflect.DeepEqual(after, before) {
		t.Errorf("failed saves changed memory\ngot:  %+v\nwant: %+v", after, before)
	}
	if got := mustGet(t, settings, despertador.KeyAlarmInfo); got != info {
		t.Errorf("failed saves changed storage\ngot:  %s\nwant: %s", got, info)
	}

	settings.Err = nil
	id, err := m.CreateAlarm("08:00", "after recovery", false, despertador.NoDays)
	if err != nil {
		t.Fatal(err)
	}
	if id != 2 {
		t.Errorf("wrong id after recovery\ngot:  %d\nwant: 2", id)
	}
}

func TestManagerModifyAlarm(t *testing.T) {
	m := newManager(t, mem.NewSettings())
	if _, err := m.CreateAlarm("07:00", "wake", false, despertador.NoDays); err != nil {
		t.Fatal(err)
	}
	msg := "gym"
	err := m.ModifyAlarm(1, despertador.Update{
		Message: &msg,
		Enabled: false,
		Repeat:  true,
		Days:    despertador.Monday | despertador.Thursday,
	})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := m.Alarm(1)
	want := despertador.Alarm{
		ID:         1,
		Time:       "07:00",
		Message:    "gym",
		Repeat:     true,
		DaysOfWeek: despertador.Monday | despertador.Thursday,
	}
	if got != want {
		t.Errorf("wrong alarm\ngot:  %+v\nwant: %+v", got, want)
	}

	if err := m.ModifyRepeat(1, false, despertador.NoDays); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Alarm(1); got.Repeat || got.DaysOfWeek != despertador.NoDays {
		t.Errorf("repeat not cleared: %+v", got)
	}
}

func TestManagerPeriodicCheck(t *testing.T) {
	monday := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	clock := mem.NewClock(at(monday, 7, 30))
	rings := mem.NewRingLogger(discard)

	m := despertador.NewManager(mem.NewSettings())
	m.Logger = discard
	m.Clock = clock
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	m.RegisterFunc(rings.Ring)

	create := func(hhmm, message string, repeat bool, days despertador.Weekdays) {
		t.Helper()
		if _, err := m.CreateAlarm(hhmm, message, repeat, days); err != nil {
			t.Fatal(err)
		}
	}
	create("07:30", "workday", false, despertador.WorkDays)
	create("07:30", "weekend", false, despertador.Weekend)
	create("07:30", "daily", true, despertador.NoDays)
	create("07:31", "later", false, despertador.Monday)
	create("07:30", "never", false, despertador.NoDays)
	create("07:30", "disabled", true, despertador.EveryDay)
	if err := m.SetEnabled(6, false); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := m.PeriodicCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := messages(rings.Rings()), []string{"workday", "daily"}; !reflect.DeepEqual(got, want) {
		t.Errorf("wrong rings\ngot:  %q\nwant: %q", got, want)
	}

	// A second pass in the same minute rings again.
	if err := m.PeriodicCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if got := len(rings.Rings()); got != 4 {
		t.Errorf("wrong ring count after second pass\ngot:  %d\nwant: 4", got)
	}

	clock.Add(time.Minute)
	if err := m.PeriodicCheck(ctx); err != nil {
		t.Fatal(err)
	}
	all := rings.Rings()
	if got := all[len(all)-1].Message; got != "later" {
		t.Errorf("wrong ring at 07:31\ngot:  %q\nwant: %q", got, "later")
	}

	// Alarms without repeat stay enabled after firing.
	if a, _ := m.Alarm(4); !a.Enabled {
		t.Error("alarm disabled after firing")
	}
}

func TestManagerPeriodicCheckWithoutRing(t *testing.T) {
	m := despertador.NewManager(mem.NewSettings())
	m.Logger = discard
	m.Clock = mem.NewClock(time.Date(2024, time.January, 1, 7, 30, 0, 0, time.UTC))
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateAlarm("07:30", "silent", true, despertador.EveryDay); err != nil {
		t.Fatal(err)
	}
	if err := m.PeriodicCheck(context.Background()); err != nil {
		t.Errorf("check without ring callback: %v", err)
	}
}

func TestManagerRingMayCallBack(t *testing.T) {
	m := despertador.NewManager(mem.NewSettings())
	m.Logger = discard
	m.Clock = mem.NewClock(time.Date(2024, time.January, 1, 7, 30, 0, 0, time.UTC))
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateAlarm("07:30", "snooze me", false, despertador.Monday); err != nil {
		t.Fatal(err)
	}
	m.RegisterFunc(func(ctx context.Context, a despertador.Alarm) {
		if err := m.SetEnabled(a.ID, false); err != nil {
			t.Errorf("disable from ring: %v", err)
		}
	})
	if err := m.PeriodicCheck(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a, _ := m.Alarm(1); a.Enabled {
		t.Error("ring callback could not disable the alarm")
	}
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := despertador.NewManager(mem.NewSettings())
	m.Logger = discard
	m.Clock = mem.NewClock(time.Date(2024, time.January, 1, 7, 30, 0, 0, time.UTC))
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	var rings atomic.Int64
	m.RegisterFunc(func(ctx context.Context, a despertador.Alarm) { rings.Add(1) })

	const (
		writers    = 4
		readers    = 4
		iterations = 200
	)
	stop := make(chan struct{})
	var wg, rg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if _, err := m.CreateAlarm("07:30", "race", true, despertador.NoDays); err != nil {
					t.Errorf("create: %v", err)
					return
				}
				if err := m.DeleteAlarm(1); err != nil {
					t.Errorf("delete: %v", err)
					return
				}
			}
		}()
	}

	for i := 0; i < readers; i++ {
		rg.Add(1)
		go func() {
			defer rg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if err := m.PeriodicCheck(context.Background()); err != nil {
					t.Errorf("check: %v", err)
					return
				}
				alarms, err := m.List()
				if err != nil {
					t.Errorf("list: %v", err)
					return
				}
				for k, a := range alarms {
					if a.ID != k+1 {
						t.Errorf("ids not dense: %+v", alarms)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	rg.Wait()

	if n, err := m.Count(); err != nil || n != 0 {
		t.Errorf("wrong count\ngot:  %d (%v)\nwant: 0", n, err)
	}
	id, err := m.CreateAlarm("08:00", "after", false, despertador.NoDays)
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("wrong id after workload\ngot:  %d\nwant: 1", id)
	}
	t.Logf("%d rings during workload", rings.Load())
}

func messages(alarms []despertador.Alarm) []string {
	out := make([]string, len(alarms))
	for i, a := range alarms {
		out[i] = a.Message
	}
	return out
}
