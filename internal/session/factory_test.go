package session

import "testing"

type stubDelegateFactory struct {
	built []ID
}

func (f *stubDelegateFactory) NewDelegate(id ID) Delegate {
	f.built = append(f.built, id)
	return &recordingDelegate{}
}

func TestFactoryCreateSessionAssignsIncrementingIDs(t *testing.T) {
	df := &stubDelegateFactory{}
	f := NewFactory(df, "xor", nil)

	s1 := f.CreateSession(1, 2, 3, nil)
	s2 := f.CreateSession(1, 2, 3, nil)

	if s1.ID == s2.ID {
		t.Fatalf("expected distinct session IDs, got %d and %d", s1.ID, s2.ID)
	}
	if len(df.built) != 2 {
		t.Fatalf("expected delegate factory invoked twice, got %d", len(df.built))
	}
}

func TestFactoryCreateSessionWithNilDelegateFactory(t *testing.T) {
	f := NewFactory(nil, "xor", nil)
	s := f.CreateSession(1, 2, 3, nil)
	if s.Delegate != nil {
		t.Fatalf("expected nil delegate when no DelegateFactory is configured")
	}
}

func TestFactoryDestroySessionClosesDelegate(t *testing.T) {
	df := &stubDelegateFactory{}
	f := NewFactory(df, "xor", nil)
	s := f.CreateSession(1, 2, 3, nil)

	delegate := s.Delegate.(*recordingDelegate)
	f.DestroySession(s)

	if !delegate.closed {
		t.Fatalf("expected DestroySession to close the delegate")
	}
}

func TestFactoryDestroySessionNilIsNoop(t *testing.T) {
	f := NewFactory(nil, "xor", nil)
	f.DestroySession(nil)
}
