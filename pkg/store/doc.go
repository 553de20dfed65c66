// Package store provides named, typed state containers with change notification.
//
// A Store holds one state tree. Every change goes through a mutation
// (Mutate, Replace or Reset), which swaps the whole tree atomically, runs the
// store's committer if one is installed and then calls subscribers in
// registration order. Readers always receive deep copies, so no caller can
// reach into the store's tree.
//
// # Usage
//
//	s := store.New("ui", domain.DefaultUI)
//
//	unsubscribe := s.Subscribe(func(prev, cur domain.UIState) {
//	    fmt.Println(prev.ThemeName, "->", cur.ThemeName)
//	})
//	defer unsubscribe()
//
//	err := s.Mutate(ctx, func(st *domain.UIState) {
//	    st.ThemeName = "light"
//	})
//
// # Registry
//
// A Registry hands out one store per name for its lifetime:
//
//	reg := store.NewRegistry()
//	conf, err := store.Use(reg, "conf", domain.DefaultConf)
//
// # Committers
//
// A committer is the single hook that runs inside every mutation and whose
// error is returned to the caller. The persist package installs one to write
// a snapshot per mutation.
package store
