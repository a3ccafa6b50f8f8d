package web

import (
	"fmt"
	"net/url"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/samvad-hq/whatsnew-harvester/pkg/sources"
)

//go:generate templ generate

// pageData is what the full changelog page renders.
type pageData struct {
	Source  sources.Source
	Sources []sources.Source
	Session string
	Notes   []domain.DisplayRecord
	HasMore bool
}

func moreURL(sourceID, session string) string {
	return fmt.Sprintf("/sources/%s/more?session=%s", url.PathEscape(sourceID), url.QueryEscape(session))
}

const pageCSS = `body{font-family:system-ui,sans-serif;max-width:48rem;margin:0 auto;padding:1rem}
nav ul{display:flex;gap:1rem;list-style:none;padding:0}
nav li.current a{font-weight:bold}
.date{font-size:1rem;color:#555;border-bottom:1px solid #ddd;margin-top:2rem}
.date-blank{display:none}
.note img{max-width:100%}
.more{padding:1rem;text-align:center}`

const loadMoreJS = `(function(){
var notes=document.getElementById("notes");
if(!notes||!("IntersectionObserver" in window))return;
var busy=false;
var io=new IntersectionObserver(function(entries){
entries.forEach(function(e){
if(!e.isIntersecting||busy)return;
var el=e.target;busy=true;
fetch(el.dataset.next).then(function(r){
if(r.status===204){busy=false;return null;}
if(!r.ok)throw new Error(r.status);
return r.text();
}).then(function(html){
if(html===null)return;
io.unobserve(el);
var tmp=document.createElement("div");tmp.innerHTML=html;
while(tmp.firstChild)notes.insertBefore(tmp.firstChild,el);
el.remove();
var next=notes.querySelector(".more");
if(next)io.observe(next);
busy=false;
}).catch(function(){busy=false;});
});
});
var first=notes.querySelector(".more");
if(first)io.observe(first);
})();`
