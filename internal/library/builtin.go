package library

import "github.com/MarcoPoloResearchLab/pagebuilder/internal/pages"

// Block type tags of the built-in library.
const (
	TypeHero        pages.BlockType = "hero"
	TypeCardGrid    pages.BlockType = "cardGrid"
	TypeCTA         pages.BlockType = "cta"
	TypeTwoColumn   pages.BlockType = "twoColumn"
	TypeText        pages.BlockType = "text"
	TypeTestimonial pages.BlockType = "testimonial"
	TypeFAQ         pages.BlockType = "faq"
	TypePricing     pages.BlockType = "pricing"
	TypeTeam        pages.BlockType = "team"
	TypeStats       pages.BlockType = "stats"
	TypeImage       pages.BlockType = "image"
	TypeVideo       pages.BlockType = "video"
	TypeGallery     pages.BlockType = "gallery"
	TypeContact     pages.BlockType = "contact"
	TypeNewsletter  pages.BlockType = "newsletter"
	TypeMap         pages.BlockType = "map"
)

const stockPhotoQuery = "?auto=compress&cs=tinysrgb"

func stockPhoto(id string, width string) string {
	return "https://images.pexels.com/photos/" + id + "/pexels-photo-" + id + ".jpeg" + stockPhotoQuery + "&w=" + width
}

// builtinDescriptors returns fresh descriptor values on every call so callers may keep them.
func builtinDescriptors() []Descriptor {
	return []Descriptor{
		{
			ID: TypeHero, DisplayName: "Hero Section", Icon: "Layout", Category: CategoryLayout,
			DefaultContent: pages.Content{
				"title":               "Welcome to Our Platform",
				"subtitle":            "Build amazing websites with our drag-and-drop page builder",
				"primaryButtonText":   "Get Started",
				"secondaryButtonText": "Learn More",
				"backgroundImage":     stockPhoto("1714208", "1200"),
			},
		},
		{
			ID: TypeCardGrid, DisplayName: "Card Grid", Icon: "Grid3X3", Category: CategoryLayout,
			DefaultContent: pages.Content{
				"title":    "Our Features",
				"subtitle": "Discover what makes us different",
				"cards": []any{
					map[string]any{"title": "Feature 1", "description": "Description for feature 1", "image": stockPhoto("3861943", "400")},
					map[string]any{"title": "Feature 2", "description": "Description for feature 2", "image": stockPhoto("4164418", "400")},
					map[string]any{"title": "Feature 3", "description": "Description for feature 3", "image": stockPhoto("2148222", "400")},
				},
			},
		},
		{
			ID: TypeCTA, DisplayName: "Call to Action", Icon: "Megaphone", Category: CategoryLayout,
			DefaultContent: pages.Content{
				"title":           "Ready to Get Started?",
				"subtitle":        "Join thousands of users who are already using our platform.",
				"buttonText":      "Get Started Now",
				"backgroundColor": "gradient",
			},
		},
		{
			ID: TypeTwoColumn, DisplayName: "Two Column Layout", Icon: "Layout", Category: CategoryLayout,
			DefaultContent: pages.Content{
				"leftTitle":    "Left Column Title",
				"leftContent":  "Content for the left column goes here. You can add text, images, or other elements.",
				"rightTitle":   "Right Column Title",
				"rightContent": "Content for the right column goes here. Perfect for comparisons or side-by-side content.",
				"imageLeft":    "",
				"imageRight":   "",
			},
		},
		{
			ID: TypeText, DisplayName: "Text Block", Icon: "Type", Category: CategoryContent,
			DefaultContent: pages.Content{
				"title": "Section Title",
				"text":  "Add your content here. This is a text block where you can add any content you want.",
			},
		},
		{
			ID: TypeTestimonial, DisplayName: "Testimonial", Icon: "Quote", Category: CategoryContent,
			DefaultContent: pages.Content{
				"quote":    "This product has completely transformed how we work. The results speak for themselves.",
				"author":   "John Smith",
				"position": "CEO, Company Name",
				"avatar":   stockPhoto("2379004", "150"),
				"rating":   5,
			},
		},
		{
			ID: TypeFAQ, DisplayName: "FAQ Section", Icon: "MessageSquare", Category: CategoryContent,
			DefaultContent: pages.Content{
				"title":    "Frequently Asked Questions",
				"subtitle": "Find answers to common questions about our service",
				"faqs": []any{
					map[string]any{"question": "How does this work?", "answer": "Our platform uses advanced technology to provide seamless integration and user-friendly experience."},
					map[string]any{"question": "What are the pricing options?", "answer": "We offer flexible pricing plans to suit businesses of all sizes. Contact us for a custom quote."},
					map[string]any{"question": "Is there customer support?", "answer": "Yes, we provide 24/7 customer support through multiple channels including chat, email, and phone."},
				},
			},
		},
		{
			ID: TypePricing, DisplayName: "Pricing Table", Icon: "BarChart3", Category: CategoryContent,
			DefaultContent: pages.Content{
				"title":    "Choose Your Plan",
				"subtitle": "Select the perfect plan for your needs",
				"plans": []any{
					map[string]any{"name": "Basic", "price": "$9", "period": "month", "features": []any{"Feature 1", "Feature 2", "Feature 3"}, "popular": false},
					map[string]any{"name": "Pro", "price": "$29", "period": "month", "features": []any{"Everything in Basic", "Feature 4", "Feature 5", "Priority Support"}, "popular": true},
					map[string]any{"name": "Enterprise", "price": "$99", "period": "month", "features": []any{"Everything in Pro", "Custom Integration", "Dedicated Manager", "SLA"}, "popular": false},
				},
			},
		},
		{
			ID: TypeTeam, DisplayName: "Team Section", Icon: "Users", Category: CategoryContent,
			DefaultContent: pages.Content{
				"title":    "Meet Our Team",
				"subtitle": "The talented people behind our success",
				"members": []any{
					map[string]any{
						"name": "Sarah Johnson", "position": "CEO & Founder",
						"bio":    "Passionate about creating innovative solutions that make a difference.",
						"image":  stockPhoto("3785077", "300"),
						"social": map[string]any{"linkedin": "#", "twitter": "#"},
					},
					map[string]any{
						"name": "Mike Chen", "position": "CTO",
						"bio":    "Technology enthusiast with 15+ years of experience in software development.",
						"image":  stockPhoto("2379005", "300"),
						"social": map[string]any{"linkedin": "#", "github": "#"},
					},
					map[string]any{
						"name": "Emily Davis", "position": "Head of Design",
						"bio":    "Creative designer focused on user experience and beautiful interfaces.",
						"image":  stockPhoto("3785079", "300"),
						"social": map[string]any{"linkedin": "#", "dribbble": "#"},
					},
				},
			},
		},
		{
			ID: TypeStats, DisplayName: "Statistics", Icon: "BarChart3", Category: CategoryContent,
			DefaultContent: pages.Content{
				"title":    "Our Impact in Numbers",
				"subtitle": "See how we're making a difference",
				"stats": []any{
					map[string]any{"number": "10,000+", "label": "Happy Customers", "icon": "Users"},
					map[string]any{"number": "99.9%", "label": "Uptime", "icon": "Zap"},
					map[string]any{"number": "50+", "label": "Countries", "icon": "Globe"},
					map[string]any{"number": "24/7", "label": "Support", "icon": "Clock"},
				},
			},
		},
		{
			ID: TypeImage, DisplayName: "Image Block", Icon: "Image", Category: CategoryMedia,
			DefaultContent: pages.Content{
				"imageUrl": stockPhoto("3184291", "800"),
				"alt":      "Image description",
				"caption":  "Image caption goes here",
			},
		},
		{
			ID: TypeVideo, DisplayName: "Video Block", Icon: "Play", Category: CategoryMedia,
			DefaultContent: pages.Content{
				"videoUrl":     "",
				"thumbnailUrl": stockPhoto("3184338", "800"),
				"title":        "Watch Our Video",
				"description":  "Learn more about our product in this short video.",
			},
		},
		{
			ID: TypeGallery, DisplayName: "Image Gallery", Icon: "Image", Category: CategoryMedia,
			DefaultContent: pages.Content{
				"title":    "Gallery",
				"subtitle": "Browse through our collection",
				"images": []any{
					map[string]any{"url": stockPhoto("3184291", "400"), "alt": "Gallery image 1", "caption": "Image 1"},
					map[string]any{"url": stockPhoto("3184338", "400"), "alt": "Gallery image 2", "caption": "Image 2"},
					map[string]any{"url": stockPhoto("3184339", "400"), "alt": "Gallery image 3", "caption": "Image 3"},
					map[string]any{"url": stockPhoto("3184465", "400"), "alt": "Gallery image 4", "caption": "Image 4"},
				},
			},
		},
		{
			ID: TypeContact, DisplayName: "Contact Form", Icon: "Mail", Category: CategoryInteractive,
			DefaultContent: pages.Content{
				"title":    "Get in Touch",
				"subtitle": "We'd love to hear from you. Send us a message and we'll respond as soon as possible.",
				"fields": []any{
					map[string]any{"name": "name", "label": "Full Name", "type": "text", "required": true},
					map[string]any{"name": "email", "label": "Email Address", "type": "email", "required": true},
					map[string]any{"name": "subject", "label": "Subject", "type": "text", "required": false},
					map[string]any{"name": "message", "label": "Message", "type": "textarea", "required": true},
				},
				"buttonText": "Send Message",
			},
		},
		{
			ID: TypeNewsletter, DisplayName: "Newsletter Signup", Icon: "Mail", Category: CategoryInteractive,
			DefaultContent: pages.Content{
				"title":       "Stay Updated",
				"subtitle":    "Subscribe to our newsletter for the latest updates and exclusive content.",
				"placeholder": "Enter your email address",
				"buttonText":  "Subscribe",
				"privacyText": "We respect your privacy. Unsubscribe at any time.",
			},
		},
		{
			ID: TypeMap, DisplayName: "Location Map", Icon: "MapPin", Category: CategoryInteractive,
			DefaultContent: pages.Content{
				"title":   "Find Us",
				"address": "123 Business Street, City, State 12345",
				"phone":   "+1 (555) 123-4567",
				"email":   "contact@company.com",
				"mapUrl":  "https://www.google.com/maps/embed?pb=!1m18!1m12!1m3!1d3024.1!2d-74.0059!3d40.7128",
			},
		},
	}
}
