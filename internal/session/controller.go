package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"instagram-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notification texts shown to the user
const (
	MsgEmptyFields   = "Please fill in all the fields"
	MsgUsernameTaken = "Username already exists"
	MsgSignupFailed  = "Signup failed"
	MsgLoginSuccess  = "Login success"
	MsgLoginFailed   = "Login Failed"
	MsgUpdateFailed  = "Cannot update user"
	MsgCreateFailed  = "Cannot create user"
	MsgFetchFailed   = "Cannot retrieve user data"
	MsgLoggedOut     = "Logged out"
	MsgPostCreated   = "Post successfully created"
	MsgPostFailed    = "Unable to create post"
	MsgPostNoUser    = "Error: username unavailable, unable to create post"
	MsgPostsFailed   = "Cannot retrieve posts"
)

const (
	imageKeyPrefix     = "images/"
	usernameField      = "userName"
	postAuthorField    = "userId"
	defaultContentType = "application/octet-stream"
)

// State is a snapshot of the controller's observable fields
type State struct {
	SignedIn        bool                `json:"signed_in"`
	Busy            bool                `json:"busy"`
	Profile         *models.UserProfile `json:"profile,omitempty"`
	HasNotification bool                `json:"has_notification"`
}

// Controller owns one client's session, profile and notification state and
// runs every user action as a single sequential pipeline against the backends.
type Controller struct {
	auth  Auth
	docs  DocumentStore
	blobs BlobStore

	mu       sync.Mutex
	signedIn bool
	inFlight int
	profile  *models.UserProfile
	closed   bool
	onChange func(State)

	notification Mailbox

	log   zerolog.Logger
	newID func() string
	now   func() time.Time
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller's logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithIDGenerator overrides the generator used for post ids and blob keys
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// WithClock overrides the time source for post timestamps
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) { c.now = fn }
}

// NewController creates a controller and initialises it from the auth backend.
// If a user is already signed in their profile is loaded before returning.
func NewController(ctx context.Context, auth Auth, docs DocumentStore, blobs BlobStore, opts ...Option) *Controller {
	c := &Controller{
		auth:  auth,
		docs:  docs,
		blobs: blobs,
		log:   log.Logger,
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	uid, ok := auth.CurrentUserID()
	c.signedIn = ok
	if ok {
		c.FetchProfile(ctx, uid)
	}
	return c
}

// OnChange registers fn to be called with a fresh snapshot after every state change
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current snapshot
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// TakeNotification consumes the pending notification, if any
func (c *Controller) TakeNotification() (string, bool) {
	return c.notification.Take()
}

// Close detaches the controller. Pipelines still running afterwards no longer touch its state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.onChange = nil
}

// SignUp checks that username is free, creates the account and the initial profile.
// The username check and the profile write are not atomic, so two concurrent
// signups with the same username can both succeed.
func (c *Controller) SignUp(ctx context.Context, username, email, password string) {
	if username == "" || email == "" || password == "" {
		c.fail(nil, MsgEmptyFields)
		return
	}

	c.begin()
	defer c.end()

	existing, err := c.docs.QueryByField(ctx, models.UsersCollection, usernameField, username)
	if err != nil {
		c.fail(err, MsgSignupFailed)
		return
	}
	if len(existing) > 0 {
		c.fail(nil, MsgUsernameTaken)
		return
	}

	if _, err := c.auth.CreateAccount(ctx, email, password); err != nil {
		c.fail(err, MsgSignupFailed)
		return
	}

	c.mutate(func() { c.signedIn = true })
	c.UpsertProfile(ctx, ProfileUpdate{Username: &username})
}

// LogIn authenticates and loads the user's profile
func (c *Controller) LogIn(ctx context.Context, email, password string) {
	if email == "" || password == "" {
		c.fail(nil, MsgEmptyFields)
		return
	}

	c.begin()
	defer c.end()

	if _, err := c.auth.SignIn(ctx, email, password); err != nil {
		c.fail(err, MsgLoginFailed)
		return
	}

	c.mutate(func() { c.signedIn = true })

	uid, ok := c.auth.CurrentUserID()
	if !ok {
		return
	}
	c.notify(MsgLoginSuccess)
	c.FetchProfile(ctx, uid)
}

// UpdateProfile replaces name, username and bio
func (c *Controller) UpdateProfile(ctx context.Context, name, username, bio string) {
	c.UpsertProfile(ctx, ProfileUpdate{Name: &name, Username: &username, Bio: &bio})
}

// UpsertProfile applies update to the signed-in user's profile, creating the
// document when it does not exist yet.
func (c *Controller) UpsertProfile(ctx context.Context, update ProfileUpdate) {
	uid, ok := c.auth.CurrentUserID()
	if !ok {
		c.log.Warn().Msg("Profile upsert without a signed-in user")
		return
	}

	c.begin()
	defer c.end()

	candidate := MergeProfile(uid, c.profileSnapshot(), update)

	doc, err := c.docs.Get(ctx, models.UsersCollection, uid)
	if err != nil {
		c.fail(err, MsgCreateFailed)
		return
	}

	if doc != nil {
		if !update.Empty() {
			if err := c.docs.Update(ctx, models.UsersCollection, uid, update.Fields()); err != nil {
				c.fail(err, MsgUpdateFailed)
				return
			}
		}
		c.mutate(func() { c.profile = &candidate })
		return
	}

	if err := c.docs.Set(ctx, models.UsersCollection, uid, candidate); err != nil {
		c.fail(err, MsgCreateFailed)
		return
	}
	c.FetchProfile(ctx, uid)
}

// RefreshProfile reloads the signed-in user's profile. Without a user it does nothing.
func (c *Controller) RefreshProfile(ctx context.Context) {
	uid, ok := c.auth.CurrentUserID()
	if !ok {
		c.log.Warn().Msg("Profile refresh without a signed-in user")
		return
	}
	c.FetchProfile(ctx, uid)
}

// LookupProfile reads another user's profile without touching the session state.
// A missing document returns nil.
func (c *Controller) LookupProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	doc, err := c.docs.Get(ctx, models.UsersCollection, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if doc == nil {
		return nil, nil
	}

	var profile models.UserProfile
	if err := doc.Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

// FetchProfile loads the stored profile for userID into the session. A missing
// document leaves the profile unset. Callers pass the session's own user id.
func (c *Controller) FetchProfile(ctx context.Context, userID string) {
	c.begin()
	defer c.end()

	doc, err := c.docs.Get(ctx, models.UsersCollection, userID)
	if err != nil {
		c.fail(err, MsgFetchFailed)
		return
	}
	if doc == nil {
		c.mutate(func() { c.profile = nil })
		return
	}

	var profile models.UserProfile
	if err := doc.Decode(&profile); err != nil {
		c.fail(err, MsgFetchFailed)
		return
	}
	c.mutate(func() { c.profile = &profile })
}

// LogOut signs out locally and clears the session state
func (c *Controller) LogOut() {
	c.signOut()
	c.notify(MsgLoggedOut)
}

func (c *Controller) signOut() {
	c.auth.SignOut()
	c.mutate(func() {
		c.signedIn = false
		c.profile = nil
	})
}

// UploadImage stores img under a fresh key and hands its download URL to then.
// The controller stays busy until then returns.
func (c *Controller) UploadImage(ctx context.Context, img Image, then func(ctx context.Context, url string)) {
	c.begin()
	defer c.end()

	contentType := img.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	key := imageKeyPrefix + c.newID()
	if err := c.blobs.Upload(ctx, key, img.Body, contentType); err != nil {
		c.fail(err, "")
		return
	}

	url, err := c.blobs.DownloadURL(ctx, key)
	if err != nil {
		c.fail(err, "")
		return
	}

	c.log.Debug().Str("key", key).Msg("Image uploaded")
	if then != nil {
		then(ctx, url)
	}
}

// UploadProfileImage uploads img and sets it as the profile image
func (c *Controller) UploadProfileImage(ctx context.Context, img Image) {
	c.UploadImage(ctx, img, func(ctx context.Context, url string) {
		c.UpsertProfile(ctx, ProfileUpdate{ImageURL: &url})
	})
}

// CreatePost uploads img and stores a post for it. onPosted runs after the post is stored.
// If the session has no user id the controller is signed out and the pending
// notification is the post error, not "Logged out".
func (c *Controller) CreatePost(ctx context.Context, img Image, description string, onPosted func(models.Post)) {
	c.UploadImage(ctx, img, func(ctx context.Context, url string) {
		c.storePost(ctx, url, description, onPosted)
	})
}

func (c *Controller) storePost(ctx context.Context, imageURL, description string, onPosted func(models.Post)) {
	uid, ok := c.auth.CurrentUserID()
	if !ok {
		// No user behind a signed-in session: reset to a known state.
		c.signOut()
		c.fail(nil, MsgPostNoUser)
		return
	}

	author := c.profileSnapshot()
	post := models.Post{
		PostID:          c.newID(),
		UserID:          uid,
		PostImage:       imageURL,
		PostDescription: description,
		Time:            c.now().UnixMilli(),
	}
	if author != nil {
		post.Username = author.UserName
		post.UserImage = author.ImageURL
	}

	if err := c.docs.Set(ctx, models.PostsCollection, post.PostID, post); err != nil {
		c.fail(err, MsgPostFailed)
		return
	}

	c.log.Info().Str("user_id", uid).Str("post_id", post.PostID).Msg("Post created")
	c.notify(MsgPostCreated)
	if onPosted != nil {
		onPosted(post)
	}
}

// Posts lists the signed-in user's posts, newest first
func (c *Controller) Posts(ctx context.Context) []models.Post {
	uid, ok := c.auth.CurrentUserID()
	if !ok {
		return nil
	}

	c.begin()
	defer c.end()

	docs, err := c.docs.QueryByField(ctx, models.PostsCollection, postAuthorField, uid)
	if err != nil {
		c.fail(err, MsgPostsFailed)
		return nil
	}

	posts := make([]models.Post, 0, len(docs))
	for i := range docs {
		var post models.Post
		if err := docs[i].Decode(&post); err != nil {
			c.log.Error().Err(err).Str("post_id", docs[i].ID).Msg("Skipping undecodable post")
			continue
		}
		posts = append(posts, post)
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Time > posts[j].Time })
	return posts
}

// fail reports a failure to the user as "label : detail"
func (c *Controller) fail(err error, label string) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	msg := JoinMessage(label, detail)

	if err != nil {
		c.log.Error().Err(err).Msg(msg)
	} else {
		c.log.Warn().Msg(msg)
	}
	c.notify(msg)
}

// JoinMessage combines an optional context label with an optional error detail
func JoinMessage(label, detail string) string {
	switch {
	case label == "":
		return detail
	case detail == "":
		return label
	default:
		return label + " : " + detail
	}
}

func (c *Controller) notify(msg string) {
	c.mutate(func() { c.notification.Put(msg) })
}

func (c *Controller) begin() {
	c.mutate(func() { c.inFlight++ })
}

func (c *Controller) end() {
	c.mutate(func() {
		if c.inFlight > 0 {
			c.inFlight--
		}
	})
}

func (c *Controller) profileSnapshot() *models.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return nil
	}
	p := *c.profile
	return &p
}

// mutate applies fn under the lock and notifies the observer. It is a no-op once closed.
func (c *Controller) mutate(fn func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fn()
	state := c.stateLocked()
	observer := c.onChange
	c.mu.Unlock()

	if observer != nil {
		observer(state)
	}
}

func (c *Controller) stateLocked() State {
	state := State{
		SignedIn:        c.signedIn,
		Busy:            c.inFlight > 0,
		HasNotification: c.notification.Pending(),
	}
	if c.profile != nil {
		p := *c.profile
		p.Following = append([]string(nil), c.profile.Following...)
		state.Profile = &p
	}
	return state
}
