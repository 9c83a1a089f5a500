package core

// ProfileState distinguishes a caller who has not completed setup from one
// with a stored profile.
type ProfileState struct {
	profile *UserProfile
}

// Uninitialized is the state of a caller without a stored profile.
var Uninitialized = ProfileState{}

func ReadyProfile(p UserProfile) ProfileState {
	return ProfileState{profile: &p}
}

// ProfileStateFrom maps an optional profile to its state.
func ProfileStateFrom(p *UserProfile) ProfileState {
	if p == nil {
		return Uninitialized
	}
	return ReadyProfile(*p)
}

func (s ProfileState) IsReady() bool {
	return s.profile != nil
}

// Profile returns the stored profile and true when the state is ready.
func (s ProfileState) Profile() (UserProfile, bool) {
	if s.profile == nil {
		return UserProfile{}, false
	}
	return *s.profile, true
}
