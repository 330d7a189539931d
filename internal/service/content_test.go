package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"PulseLoop/internal/model"
	"PulseLoop/internal/pkg"
	"PulseLoop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type contentFixture struct {
	db        *gorm.DB
	pusher    *recordPusher
	store     *memStore
	posts     *PostService
	comments  *CommentService
	reactions *ReactionService
	analytics *AnalyticsService
	trending  *TrendingService
}

func newContentFixture(t *testing.T) *contentFixture {
	db := testutil.NewDB(t)
	pusher := &recordPusher{}
	store := newMemStore()
	notifier := NewNotificationService(db, pusher)
	return &contentFixture{
		db:        db,
		pusher:    pusher,
		store:     store,
		posts:     NewPostService(db, store),
		comments:  NewCommentService(db, notifier),
		reactions: NewReactionService(db, notifier),
		analytics: NewAnalyticsService(db),
		trending:  NewTrendingService(db),
	}
}

func (f *contentFixture) post(t *testing.T, author *model.User, tags ...string) *PostView {
	t.Helper()
	p, err := f.posts.CreatePost(context.Background(), CreatePostInput{
		AuthorID:              author.ID,
		Text:                  "shift handover tips",
		DisplayNamePreference: "FullName",
		Tags:                  tags,
	})
	require.NoError(t, err)
	return p
}

func (f *contentFixture) notifications(t *testing.T, userID uint64) []model.Notification {
	t.Helper()
	var list []model.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id").Find(&list).Error)
	return list
}

func TestDiscussionAnalyticsScenario(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	expert := testutil.SeedUser(t, f.db, "Eli Expert", model.RoleNurse)
	require.NoError(t, f.db.Model(expert).Update("expertise_level", model.ExpertiseExpert).Error)
	voters := []*model.User{
		testutil.SeedUser(t, f.db, "V One", model.RoleNurse),
		testutil.SeedUser(t, f.db, "V Two", model.RoleNurse),
		testutil.SeedUser(t, f.db, "V Three", model.RoleNurse),
	}

	p := f.post(t, author, "icu", "sepsis")
	c1, err := f.comments.AddComment(ctx, p.ID, expert.ID, "first", nil)
	require.NoError(t, err)
	c2, err := f.comments.AddComment(ctx, p.ID, voters[0].ID, "second", nil)
	require.NoError(t, err)
	reply, err := f.comments.AddComment(ctx, p.ID, author.ID, "reply", &c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reply.Depth)

	for _, v := range voters {
		_, err = f.reactions.ToggleCommentReaction(ctx, c1.ID, v.ID, "UPVOTE")
		require.NoError(t, err)
	}
	_, err = f.reactions.ToggleCommentReaction(ctx, c2.ID, author.ID, "DOWNVOTE")
	require.NoError(t, err)

	a, err := f.analytics.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.TotalComments)
	assert.Equal(t, int64(1), a.TotalReplies)
	assert.Equal(t, int64(3), a.TotalUpvotes)
	assert.Equal(t, int64(1), a.TotalDownvotes)
	assert.Equal(t, int64(1), a.ExpertParticipants)
	assert.InDelta(t, 10.5, a.DiscussionScore, 1e-9)

	// 删除带回复的评论后重算
	require.NoError(t, f.comments.DeleteComment(ctx, c1.ID, expert.ID, model.RoleNurse))
	a, err = f.analytics.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.TotalComments)
	assert.Equal(t, int64(0), a.TotalReplies)
	assert.Equal(t, int64(0), a.TotalUpvotes)
	assert.Equal(t, int64(1), a.TotalDownvotes)
	assert.Equal(t, int64(0), a.ExpertParticipants)
	assert.InDelta(t, 0.0, a.DiscussionScore, 1e-9)

	_, err = f.analytics.Get(ctx, 9999)
	assert.Equal(t, pkg.KindNotFound, kindOf(err))
}

func TestTogglePostReaction(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	reactor := testutil.SeedUser(t, f.db, "Rae Reactor", model.RoleNurse)
	p := f.post(t, author)

	countRows := func() int64 {
		var n int64
		require.NoError(t, f.db.Model(&model.Reaction{}).Where("post_id = ?", p.ID).Count(&n).Error)
		return n
	}

	out, err := f.reactions.TogglePostReaction(ctx, p.ID, reactor.ID, "HEART")
	require.NoError(t, err)
	assert.Equal(t, model.ToggleAdded, out.Result)
	assert.Equal(t, int64(1), out.ReactionCounts["HEART"])

	out, err = f.reactions.TogglePostReaction(ctx, p.ID, reactor.ID, "HEART")
	require.NoError(t, err)
	assert.Equal(t, model.ToggleRemoved, out.Result)
	assert.Equal(t, int64(0), countRows())

	out, err = f.reactions.TogglePostReaction(ctx, p.ID, reactor.ID, "SUPPORT")
	require.NoError(t, err)
	assert.Equal(t, model.ToggleAdded, out.Result)
	assert.Equal(t, int64(1), countRows())

	out, err = f.reactions.TogglePostReaction(ctx, p.ID, reactor.ID, "clap")
	require.NoError(t, err)
	assert.Equal(t, model.ToggleChanged, out.Result)
	assert.Equal(t, map[string]int64{"CLAP": 1}, out.ReactionCounts)
	assert.Equal(t, int64(1), countRows())

	// 只有两次 added 产生通知
	n := f.notifications(t, author.ID)
	assert.Len(t, n, 2)
	assert.Equal(t, model.NotifyPostReaction, n[0].Type)
	assert.Equal(t, "Rae Reactor reacted to your post", n[0].Message)

	_, err = f.reactions.TogglePostReaction(ctx, p.ID, reactor.ID, "WAVE")
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	_, err = f.reactions.TogglePostReaction(ctx, 9999, reactor.ID, "HEART")
	assert.Equal(t, pkg.KindNotFound, kindOf(err))
}

func TestOwnReactionDoesNotNotify(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	p := f.post(t, author)

	_, err := f.reactions.TogglePostReaction(ctx, p.ID, author.ID, "HEART")
	require.NoError(t, err)
	c, err := f.comments.AddComment(ctx, p.ID, author.ID, "self note", nil)
	require.NoError(t, err)
	_, err = f.reactions.ToggleCommentReaction(ctx, c.ID, author.ID, "HELPFUL")
	require.NoError(t, err)

	assert.Empty(t, f.notifications(t, author.ID))
	assert.Equal(t, 0, f.pusher.count())
}

func TestToggleCommentReactionRules(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	voter := testutil.SeedUser(t, f.db, "Val Voter", model.RoleNurse)
	p := f.post(t, author)
	c, err := f.comments.AddComment(ctx, p.ID, author.ID, "question", nil)
	require.NoError(t, err)

	types := func() []string {
		var rows []model.CommentReaction
		require.NoError(t, f.db.Where("comment_id = ? AND user_id = ?", c.ID, voter.ID).Order("type").Find(&rows).Error)
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, string(r.Type))
		}
		return out
	}

	out, err := f.reactions.ToggleCommentReaction(ctx, c.ID, voter.ID, "UPVOTE")
	require.NoError(t, err)
	assert.Equal(t, model.ToggleAdded, out.Result)
	n := f.notifications(t, author.ID)
	require.Len(t, n, 1)
	assert.Equal(t, model.NotifyCommentReaction, n[0].Type)
	assert.Equal(t, "Val Voter reacted to your comment", n[0].Message)

	_, err = f.reactions.ToggleCommentReaction(ctx, c.ID, voter.ID, "EXPERT")
	require.NoError(t, err)
	assert.Equal(t, []string{"EXPERT", "UPVOTE"}, types())

	// 踩替换赞，EXPERT 保留
	_, err = f.reactions.ToggleCommentReaction(ctx, c.ID, voter.ID, "DOWNVOTE")
	require.NoError(t, err)
	assert.Equal(t, []string{"DOWNVOTE", "EXPERT"}, types())

	out, err = f.reactions.ToggleCommentReaction(ctx, c.ID, voter.ID, "EXPERT")
	require.NoError(t, err)
	assert.Equal(t, model.ToggleRemoved, out.Result)
	assert.Equal(t, []string{"DOWNVOTE"}, types())
	assert.Equal(t, map[string]int64{"DOWNVOTE": 1}, out.ReactionCounts)

	_, err = f.reactions.ToggleCommentReaction(ctx, c.ID, voter.ID, "LOVE")
	assert.Equal(t, pkg.KindValidation, kindOf(err))
}

func TestCommentNotificationsAndValidation(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	other := testutil.SeedUser(t, f.db, "Oli Other", model.RoleNurse)
	p := f.post(t, author)
	p2 := f.post(t, author)

	top, err := f.comments.AddComment(ctx, p.ID, other.ID, "hello", nil)
	require.NoError(t, err)
	n := f.notifications(t, author.ID)
	require.Len(t, n, 1)
	assert.Equal(t, model.NotifyPostComment, n[0].Type)

	// 回复作者自己的评论时，作者只收到一条回复通知
	mine, err := f.comments.AddComment(ctx, p.ID, author.ID, "mine", nil)
	require.NoError(t, err)
	_, err = f.comments.AddComment(ctx, p.ID, other.ID, "re", &mine.ID)
	require.NoError(t, err)
	n = f.notifications(t, author.ID)
	require.Len(t, n, 2)
	assert.Equal(t, model.NotifyCommentReply, n[1].Type)

	// 帖子作者回复别人，别人收到回复通知
	_, err = f.comments.AddComment(ctx, p.ID, author.ID, "thanks", &top.ID)
	require.NoError(t, err)
	on := f.notifications(t, other.ID)
	require.Len(t, on, 1)
	assert.Equal(t, model.NotifyCommentReply, on[0].Type)

	_, err = f.comments.AddComment(ctx, p2.ID, other.ID, "cross", &top.ID)
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	missing := uint64(9999)
	_, err = f.comments.AddComment(ctx, p.ID, other.ID, "ghost", &missing)
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	_, err = f.comments.AddComment(ctx, p.ID, other.ID, "   ", nil)
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	_, err = f.comments.AddComment(ctx, 9999, other.ID, "x", nil)
	assert.Equal(t, pkg.KindNotFound, kindOf(err))

	err = f.comments.DeleteComment(ctx, top.ID, author.ID, model.RoleNurse)
	assert.Equal(t, pkg.KindForbidden, kindOf(err))

	tree, err := f.comments.ListComments(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, 1, tree[0].ReplyCount)
	assert.Equal(t, 1, tree[0].Replies[0].Depth)
}

func TestDisplayNameIsSnapshotted(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Jane Smith", model.RoleNurse)

	p, err := f.posts.CreatePost(ctx, CreatePostInput{
		AuthorID: author.ID, Text: "hi", DisplayNamePreference: "Initials",
		Tags: []string{" icu ", "", "icu"},
	})
	require.NoError(t, err)
	assert.Equal(t, "J.S.", p.DisplayName)
	assert.Equal(t, []string{"icu", "icu"}, p.Tags)

	require.NoError(t, f.db.Model(author).Update("name", "Mary Jones").Error)
	_, err = f.posts.UpdatePost(ctx, p.ID, author.ID, "edited", nil)
	require.NoError(t, err)

	got, err := f.posts.GetPost(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "J.S.", got.DisplayName)
	assert.Equal(t, "edited", got.Text)
	assert.Equal(t, []string{"icu", "icu"}, got.Tags)

	anon, err := f.posts.CreatePost(ctx, CreatePostInput{AuthorID: author.ID, Text: "quiet", DisplayNamePreference: "Anonymous"})
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", anon.DisplayName)
	assert.Nil(t, anon.Author)

	_, err = f.posts.CreatePost(ctx, CreatePostInput{AuthorID: author.ID, Text: "x", DisplayNamePreference: "Nickname"})
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	_, err = f.posts.CreatePost(ctx, CreatePostInput{AuthorID: author.ID, Text: " ", DisplayNamePreference: "FullName"})
	assert.Equal(t, pkg.KindValidation, kindOf(err))
	_, err = f.posts.CreatePost(ctx, CreatePostInput{AuthorID: 9999, Text: "x", DisplayNamePreference: "FullName"})
	assert.Equal(t, pkg.KindNotFound, kindOf(err))
}

func TestPostMediaAndDelete(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	other := testutil.SeedUser(t, f.db, "Oli Other", model.RoleNurse)
	admin := testutil.SeedUser(t, f.db, "Ada Admin", model.RoleAdmin)

	p, err := f.posts.CreatePost(ctx, CreatePostInput{
		AuthorID: author.ID, Text: "video", DisplayNamePreference: "FullName",
		Media: strings.NewReader("bytes"), MediaName: "clip.mp4", MediaContentType: "video/mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, "video", p.MediaType)
	assert.Equal(t, "/uploads/posts/clip.mp4", p.MediaURL)

	_, err = f.comments.AddComment(ctx, p.ID, other.ID, "nice", nil)
	require.NoError(t, err)
	_, err = f.reactions.TogglePostReaction(ctx, p.ID, other.ID, "FIRE")
	require.NoError(t, err)

	_, err = f.posts.UpdatePost(ctx, p.ID, other.ID, "hijack", nil)
	assert.Equal(t, pkg.KindForbidden, kindOf(err))
	assert.Equal(t, pkg.KindForbidden, kindOf(f.posts.DeletePost(ctx, p.ID, other.ID, model.RoleNurse)))

	require.NoError(t, f.posts.DeletePost(ctx, p.ID, admin.ID, model.RoleAdmin))
	assert.Contains(t, f.store.deleted, "/uploads/posts/clip.mp4")
	for _, m := range []any{&model.Comment{}, &model.Reaction{}, &model.DiscussionAnalytics{}} {
		var n int64
		require.NoError(t, f.db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
	var events []string
	require.NoError(t, f.db.Model(&model.EventOutbox{}).Order("id").Pluck("event_type", &events).Error)
	assert.Equal(t, model.EventPostCreated, events[0])
	assert.Equal(t, model.EventPostDeleted, events[len(events)-1])

	assert.Equal(t, pkg.KindNotFound, kindOf(f.posts.DeletePost(ctx, p.ID, admin.ID, model.RoleAdmin)))
}

func TestListPostsFilterAndPaging(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	viewer := testutil.SeedUser(t, f.db, "Vic Viewer", model.RoleNurse)

	first := f.post(t, author, "icu")
	f.post(t, author, "peds")
	last := f.post(t, author, "icu", "sepsis")
	_, err := f.reactions.TogglePostReaction(ctx, last.ID, viewer.ID, "SAD")
	require.NoError(t, err)

	page, err := f.posts.ListPosts(ctx, 1, 0, "icu", viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Posts, 2)
	assert.Equal(t, last.ID, page.Posts[0].ID)
	assert.Equal(t, first.ID, page.Posts[1].ID)
	assert.Equal(t, "SAD", page.Posts[0].UserReaction)

	page, err = f.posts.ListPosts(ctx, 2, 2, "", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, first.ID, page.Posts[0].ID)

	mine, err := f.posts.ListUserPosts(ctx, author.ID, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestTrendingScores(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	author := testutil.SeedUser(t, f.db, "Ava Author", model.RoleNurse)
	other := testutil.SeedUser(t, f.db, "Oli Other", model.RoleNurse)

	busy := f.post(t, author, "covid")
	f.post(t, author, "covid", "masks")
	old := f.post(t, author, "covid", "flu")
	require.NoError(t, f.db.Model(&model.Post{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	for i := 0; i < 2; i++ {
		_, err := f.comments.AddComment(ctx, busy.ID, other.ID, "c", nil)
		require.NoError(t, err)
	}
	_, err := f.reactions.TogglePostReaction(ctx, busy.ID, other.ID, "HEART")
	require.NoError(t, err)

	res, err := f.trending.Trending(ctx, "bogus", 0)
	require.NoError(t, err)
	assert.Equal(t, "24h", res.Period)
	assert.Equal(t, 2, res.TotalTopics)
	require.Len(t, res.TrendingTopics, 2)
	covid := res.TrendingTopics[0]
	assert.Equal(t, "covid", covid.Tag)
	assert.Equal(t, int64(2), covid.PostCount)
	assert.Equal(t, int64(2), covid.CommentCount)
	assert.Equal(t, int64(1), covid.ReactionCount)
	assert.InDelta(t, 3.3, covid.Score, 1e-9)

	res, err = f.trending.Trending(ctx, "7d", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalTopics)
	require.Len(t, res.TrendingTopics, 1)
	assert.Equal(t, int64(3), res.TrendingTopics[0].PostCount)

	// 超出范围的 limit 回落到默认的 10
	f.post(t, other, "t01", "t02", "t03", "t04", "t05", "t06", "t07", "t08", "t09", "t10", "t11", "t12")
	res, err = f.trending.Trending(ctx, "7d", 51)
	require.NoError(t, err)
	assert.Equal(t, 15, res.TotalTopics)
	assert.Len(t, res.TrendingTopics, 10)
}
