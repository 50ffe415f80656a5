package user

import "sort"

// SortNewestFirst orders users by created_at desc, id desc.
func SortNewestFirst(users []User) {
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
}

func Count(users map[string]User) Stats {
	var st Stats
	for _, u := range users {
		st.Total++
		switch u.Role {
		case RoleAdmin:
			st.Admins++
		case RoleUser:
			st.Users++
		}
	}
	return st
}

// CheckUnique reports an email clash before a username clash. The record
// sharing u's id is ignored so updates can keep their own values.
func CheckUnique(users map[string]User, u User) error {
	for _, other := range users {
		if other.ID != u.ID && other.Email == u.Email {
			return ErrEmailTaken
		}
	}
	for _, other := range users {
		if other.ID != u.ID && other.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	return nil
}
