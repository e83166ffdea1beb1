package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lostfound/community/internal/client"
	"github.com/lostfound/community/internal/feed"
)

func renderFeed(w io.Writer, list []feed.FeedViewModel, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	for i := range list {
		renderListing(w, &list[i], now)
		fmt.Fprintln(w)
	}
}

func renderListing(w io.Writer, vm *feed.FeedViewModel, now time.Time) {
	fmt.Fprintf(w, "[%s] %s", strings.ToUpper(string(vm.Kind)), vm.Title)
	if vm.Status != feed.StatusActive {
		fmt.Fprintf(w, " (%s)", vm.Status)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s · %s\n", feed.Initials(vm.Profile), feed.DisplayName(vm.Profile), feed.RelativeTime(vm.CreatedAt, now))

	var details []string
	if vm.Location != "" {
		details = append(details, vm.Location)
	}
	if vm.CategoryName != "" {
		details = append(details, vm.CategoryName)
	}
	if vm.RewardOffered != nil && *vm.RewardOffered > 0 {
		details = append(details, fmt.Sprintf("reward $%.2f", *vm.RewardOffered))
	}
	if len(details) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(details, " | "))
	}
	if len(vm.Tags) > 0 {
		fmt.Fprintf(w, "  #%s\n", strings.Join(vm.Tags, " #"))
	}
	renderEngagement(w, vm)
	fmt.Fprintf(w, "  id: %s\n", vm.ID)
}

func renderEngagement(w io.Writer, vm *feed.FeedViewModel) {
	heart := "♡"
	if vm.ViewerHasLiked {
		heart = "♥"
	}
	fmt.Fprintf(w, "  %s %d  💬 %d\n", heart, vm.LikeCount, vm.CommentCount)
}

func renderItem(w io.Writer, item *feed.ItemDetail, now time.Time) {
	renderListing(w, &item.FeedViewModel, now)
	fmt.Fprintln(w)
	fmt.Fprintln(w, item.Description)
	for _, url := range item.Images {
		fmt.Fprintf(w, "  image: %s\n", url)
	}

	fmt.Fprintf(w, "\nComments (%d)\n", len(item.Comments))
	for i := range item.Comments {
		renderComment(w, &item.Comments[i], now)
	}
}

func renderComment(w io.Writer, c *feed.Comment, now time.Time) {
	fmt.Fprintf(w, "  %s · %s\n    %s\n", feed.DisplayName(c.Author), feed.RelativeTime(c.CreatedAt, now), c.Content)
}

func renderProfile(w io.Writer, p *client.Profile) {
	fmt.Fprintf(w, "%s  %s\n", feed.Initials(&p.ProfileSummary), feed.DisplayName(&p.ProfileSummary))
	if p.Email != "" {
		fmt.Fprintf(w, "  email: %s\n", p.Email)
	}
	if p.Phone != "" {
		fmt.Fprintf(w, "  phone: %s\n", p.Phone)
	}
}

func renderStats(w io.Writer, s *client.Stats) {
	fmt.Fprintf(w, "Total items:       %d\n", s.TotalItems)
	fmt.Fprintf(w, "Active items:      %d\n", s.ActiveItems)
	fmt.Fprintf(w, "Returned items:    %d\n", s.ReturnedItems)
	fmt.Fprintf(w, "Community members: %d\n", s.CommunityMembers)
}
